package mirror

import (
	"io/fs"
	"log/slog"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"
)

// Enumerate walks root and returns the set of directory paths and the set of
// file paths beneath it, as absolute paths. The root itself is not included.
// Sets are built fresh on every call; nothing is cached across passes, so a
// stale view is never possible. Walk errors skip the offending entry rather
// than aborting the walk — the caller guarantees root itself exists.
func Enumerate(root string, log *slog.Logger) (dirs, files mapset.Set[string]) {
	dirs = mapset.NewThreadUnsafeSet[string]()
	files = mapset.NewThreadUnsafeSet[string]()

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			log.Debug("walk error", "path", path, "error", walkErr)
			return nil
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			dirs.Add(path)
		} else {
			files.Add(path)
		}
		return nil
	})

	return dirs, files
}
