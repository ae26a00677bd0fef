// Package mirror implements the compare-and-reconcile engine that keeps a
// backup directory tree content-identical to a source tree.
package mirror

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/mirrorbox/mirrorbox/internal/utils"
)

const pathSep = string(filepath.Separator)

var (
	ErrBackupLocked = errors.New("backup tree locked by another process")
)

// Workspace holds the validated source/backup root pair and the path mapping
// between them. Backup paths are derived from source paths (and vice versa) by
// lexical prefix substitution, so both roots must be absolute and
// non-overlapping.
type Workspace struct {
	SourceDir string
	BackupDir string

	flock *flock.Flock
}

func NewWorkspace(sourceDir, backupDir string) (*Workspace, error) {
	source, err := utils.ResolvePath(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("resolve source path %q: %w", sourceDir, err)
	}

	backup, err := utils.ResolvePath(backupDir)
	if err != nil {
		return nil, fmt.Errorf("resolve backup path %q: %w", backupDir, err)
	}

	if source == backup || isSubPath(source, backup) || isSubPath(backup, source) {
		return nil, fmt.Errorf("source %q and backup %q overlap", source, backup)
	}

	// lock file is a sibling of the backup root, so it never shows up as an
	// orphan inside the mirrored tree
	return &Workspace{
		SourceDir: source,
		BackupDir: backup,
		flock:     flock.New(backup + ".lock"),
	}, nil
}

// Validate checks both roots exist as directories. The engine assumes this
// holds for the lifetime of the process.
func (w *Workspace) Validate() error {
	if !utils.DirExists(w.SourceDir) {
		return fmt.Errorf("source %q is not a directory", w.SourceDir)
	}
	if !utils.DirExists(w.BackupDir) {
		return fmt.Errorf("backup %q is not a directory", w.BackupDir)
	}
	return nil
}

// Lock takes an exclusive advisory lock on the backup tree so that only one
// mirrorbox instance writes to it.
func (w *Workspace) Lock() error {
	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("lock backup tree: %w", err)
	}
	if !locked {
		return ErrBackupLocked
	}
	return nil
}

func (w *Workspace) Unlock() error {
	if !w.flock.Locked() {
		return nil
	}
	return w.flock.Unlock()
}

// ToBackup maps a source-side path to its backup-side counterpart.
func (w *Workspace) ToBackup(path string) string {
	return rebase(path, w.SourceDir, w.BackupDir)
}

// ToSource maps a backup-side path to its source-side counterpart.
func (w *Workspace) ToSource(path string) string {
	return rebase(path, w.BackupDir, w.SourceDir)
}

func rebase(path, fromRoot, toRoot string) string {
	if path == fromRoot {
		return toRoot
	}
	return toRoot + strings.TrimPrefix(path, fromRoot)
}

func isSubPath(parent, child string) bool {
	return strings.HasPrefix(child, parent+pathSep)
}
