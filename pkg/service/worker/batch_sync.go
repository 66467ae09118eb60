package worker

import (
	"context"
	"time"

	"github.com/secmon-lab/threadsync/pkg/domain/model"
	"github.com/secmon-lab/threadsync/pkg/utils/errutil"
	"github.com/secmon-lab/threadsync/pkg/utils/logging"
)

// BatchRunner runs one batch sync
type BatchRunner interface {
	RunBatch(ctx context.Context, owner, repo string) (*model.BatchResult, error)
}

// BatchSyncWorker runs the batch sync on a fixed interval.
// Overlap with other processes is guarded by the issue lock, not by this worker.
type BatchSyncWorker struct {
	runner   BatchRunner
	owner    string
	repo     string
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewBatchSyncWorker creates a new worker for periodic batch sync
func NewBatchSyncWorker(runner BatchRunner, owner, repo string, interval time.Duration) *BatchSyncWorker {
	return &BatchSyncWorker{
		runner:   runner,
		owner:    owner,
		repo:     repo,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background loop. The first run starts immediately without blocking the caller.
func (w *BatchSyncWorker) Start(ctx context.Context) error {
	logging.Default().Info("Batch sync worker starting",
		"owner", w.owner,
		"repo", w.repo,
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for the running batch to finish
func (w *BatchSyncWorker) Stop() {
	logging.Default().Info("Batch sync worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("Batch sync worker stopped")
}

// run is the main worker loop (runs in goroutine)
func (w *BatchSyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runOnce(ctx)

		case <-w.stopCh:
			logging.Default().Info("Batch sync worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Batch sync worker context cancelled")
			return
		}
	}
}

// runOnce performs a single batch and logs its outcome; failures wait for the next tick
func (w *BatchSyncWorker) runOnce(ctx context.Context) {
	startTime := time.Now()

	result, err := w.runner.RunBatch(ctx, w.owner, w.repo)
	if err != nil {
		_ = errutil.Handle(ctx, err, "Batch sync failed (will retry next interval)")
		return
	}

	logging.Default().Info("Batch sync completed",
		"run_id", result.RunID,
		"processed", result.Processed,
		"errors", result.Errors,
		"duration", time.Since(startTime).String())
}
