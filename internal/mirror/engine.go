package mirror

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrPassAlreadyRunning = errors.New("reconcile pass already running")
)

// Engine drives the periodic check-and-reconcile loop. It alternates between
// two states: checking (full tree equality) and reconciling (one full
// enumerate-then-reconcile pass). Equal trees put the loop to sleep for the
// configured interval; a failed pass is re-verified immediately with no sleep.
type Engine struct {
	ws       *Workspace
	cmp      *Comparator
	rec      *Reconciler
	interval time.Duration
	log      *slog.Logger
	muPass   sync.Mutex
}

func NewEngine(ws *Workspace, interval time.Duration, log *slog.Logger) *Engine {
	cmp := NewComparator(log)
	return &Engine{
		ws:       ws,
		cmp:      cmp,
		rec:      NewReconciler(ws, cmp, log),
		interval: interval,
		log:      log,
	}
}

// Run loops until ctx is cancelled. Cancellation is observed at the sleep
// point and between passes; an in-flight pass always runs to completion.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("mirror start", "source", e.ws.SourceDir, "backup", e.ws.BackupDir, "interval", e.interval)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if e.cmp.TreeEqual(e.ws.SourceDir, e.ws.BackupDir) {
			e.log.Info("trees in sync, waiting", "wait", e.interval)
			// a fresh timer per sleep, not a ticker, so a pass that outlasts
			// the interval doesn't queue up extra wakeups
			timer := time.NewTimer(e.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			continue
		}

		if _, err := e.RunOnce(); err != nil {
			e.log.Warn("reconcile pass", "error", err)
		}
	}
}

// RunOnce performs a single enumerate-then-reconcile pass, files first, then
// directories. The returned flag is true only if every attempted operation
// succeeded; it affects logging only, never retry scheduling — the next
// equality check is the de facto retry mechanism.
func (e *Engine) RunOnce() (bool, error) {
	if !e.muPass.TryLock() {
		return false, ErrPassAlreadyRunning
	}
	defer e.muPass.Unlock()

	start := time.Now()

	sourceDirs, sourceFiles := Enumerate(e.ws.SourceDir, e.log)
	backupDirs, backupFiles := Enumerate(e.ws.BackupDir, e.log)

	ok := e.rec.ReconcileFiles(sourceFiles, backupFiles)
	if !e.rec.ReconcileDirs(sourceDirs, backupDirs) {
		ok = false
	}

	e.log.Info("finished sync pass", "ok", ok, "took", time.Since(start).Round(time.Millisecond))
	return ok, nil
}
