package mirror

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"
	"github.com/mirrorbox/mirrorbox/internal/utils"
)

// Reconciler applies the create/update/delete operations that make the backup
// tree match the source tree. Every per-item failure is logged and folded into
// the pass's boolean outcome; iteration never halts on an error.
type Reconciler struct {
	ws  *Workspace
	cmp *Comparator
	log *slog.Logger
}

func NewReconciler(ws *Workspace, cmp *Comparator, log *slog.Logger) *Reconciler {
	return &Reconciler{
		ws:  ws,
		cmp: cmp,
		log: log,
	}
}

// ReconcileFiles copies every source file whose backup counterpart is missing
// or divergent, then removes orphaned backup files. Additions and deletions
// operate on disjoint inputs, so no ordering between them is required.
func (r *Reconciler) ReconcileFiles(sourceFiles, backupFiles mapset.Set[string]) bool {
	ok := true

	for file := range sourceFiles.Iter() {
		backupFile := r.ws.ToBackup(file)
		if r.cmp.FilesEqual(file, backupFile) {
			continue
		}
		if !r.syncFile(file, backupFile) {
			ok = false
		}
	}

	for file := range backupFiles.Iter() {
		if utils.FileExists(r.ws.ToSource(file)) {
			continue
		}
		// already gone, e.g. removed with an orphaned ancestor
		if !utils.FileExists(file) {
			continue
		}
		if err := os.Remove(file); err != nil {
			r.log.Warn("failed to remove file", "path", file, "error", err)
			ok = false
			continue
		}
		r.log.Info("removed file", "path", file)
	}

	return ok
}

// syncFile performs a copy-with-replace of src to bak.
func (r *Reconciler) syncFile(src, bak string) bool {
	ok := true

	if !utils.FileExists(src) {
		return false
	}

	if utils.FileExists(bak) {
		if err := os.Remove(bak); err != nil {
			r.log.Debug("failed to remove stale backup", "path", bak, "error", err)
		}
	}

	parent := filepath.Dir(bak)
	if !utils.DirExists(parent) {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			r.log.Warn("failed to create dir", "path", parent, "error", err)
			ok = false
		} else {
			r.log.Info("created dir", "path", parent)
		}
	}

	written, err := utils.CopyFile(src, bak)
	if err != nil {
		r.log.Warn("failed to copy file", "path", bak, "error", err)
		return false
	}
	r.log.Info("copied file", "path", bak, "size", humanize.IBytes(uint64(written)))

	return ok
}

// ReconcileDirs materializes empty source directories on the backup side and
// removes orphaned backup subtrees. Non-empty directories are never created
// here — they come into existence as a side effect of file copies creating
// their parents. The backup set is not pre-filtered for descendants of
// already-removed ancestors; each entry is re-checked for existence right
// before deletion instead.
func (r *Reconciler) ReconcileDirs(sourceDirs, backupDirs mapset.Set[string]) bool {
	ok := true

	for dir := range sourceDirs.Iter() {
		backupDir := r.ws.ToBackup(dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			r.log.Debug("cannot read dir", "path", dir, "error", err)
			continue
		}
		if len(entries) == 0 && !utils.DirExists(backupDir) {
			if err := os.MkdirAll(backupDir, 0o755); err != nil {
				r.log.Warn("failed to create dir", "path", backupDir, "error", err)
			} else {
				r.log.Info("created dir", "path", backupDir)
			}
		}
	}

	for dir := range backupDirs.Iter() {
		if utils.DirExists(r.ws.ToSource(dir)) {
			continue
		}
		if !utils.DirExists(dir) {
			continue
		}
		if err := removeTree(dir); err != nil {
			r.log.Warn("failed to remove dir", "path", dir, "error", err)
			ok = false
			continue
		}
		r.log.Info("removed dir", "path", dir)
	}

	return ok
}

// removeTree deletes a subtree. On failure it clears write-protection bits
// throughout the subtree and retries once; if nothing was write-protected the
// original error stands.
func removeTree(path string) error {
	err := os.RemoveAll(path)
	if err == nil {
		return nil
	}
	if !clearReadOnly(path) {
		return err
	}
	return os.RemoveAll(path)
}

func clearReadOnly(path string) bool {
	cleared := false
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if utils.IsWritable(p) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if os.Chmod(p, info.Mode().Perm()|0o200) == nil {
			cleared = true
		}
		return nil
	})
	return cleared
}
