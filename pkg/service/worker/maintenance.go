package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/secmon-lab/mnemosyne/pkg/utils/errutil"
	"github.com/secmon-lab/mnemosyne/pkg/utils/logging"
)

// SweepFunc runs one maintenance pass over every known user.
type SweepFunc func(ctx context.Context) error

// MaintenanceWorker runs the memory maintenance sweep on a cron schedule.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - For future horizontal scaling, implement distributed locking or leader election
type MaintenanceWorker struct {
	schedule string
	sweep    SweepFunc
	cron     *cron.Cron
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewMaintenanceWorker creates a worker that runs sweep on the given cron
// schedule (standard 5-field cron expression).
func NewMaintenanceWorker(schedule string, sweep SweepFunc) *MaintenanceWorker {
	return &MaintenanceWorker{
		schedule: schedule,
		sweep:    sweep,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start registers the schedule and begins the cron loop. Does not block
// server startup.
func (w *MaintenanceWorker) Start(ctx context.Context) error {
	logging.Default().Info("maintenance worker starting",
		"schedule", w.schedule)

	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.schedule, func() {
		w.runOnce(ctx)
	}); err != nil {
		return err
	}
	w.cron.Start()

	go w.wait(ctx)

	return nil
}

// Stop signals the worker to stop and waits for any running sweep to finish.
func (w *MaintenanceWorker) Stop() {
	logging.Default().Info("maintenance worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("maintenance worker stopped")
}

func (w *MaintenanceWorker) wait(ctx context.Context) {
	defer close(w.doneCh)

	select {
	case <-w.stopCh:
	case <-ctx.Done():
		logging.Default().Info("maintenance worker context cancelled")
	}

	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
}

func (w *MaintenanceWorker) runOnce(ctx context.Context) {
	startTime := time.Now()
	logging.Default().Info("starting maintenance sweep")

	if err := w.sweep(ctx); err != nil {
		// Keep the schedule alive; the next tick retries.
		errutil.Handle(ctx, err, "maintenance sweep failed")
		return
	}

	logging.Default().Info("maintenance sweep completed",
		"duration", time.Since(startTime).String())
}
