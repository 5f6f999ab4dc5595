package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/rpggio/traceback/internal/ingest"
)

// Schedule starts a background sync on every tick of the cron spec. A tick
// that finds a sync running is skipped. The returned func stops the
// schedule and waits for a tick in progress to finish.
func (a *App) Schedule(spec string) (func(), error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, a.scheduledSync); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	c.Start()
	a.logger.Info("sync schedule started", "schedule", spec)
	return func() { <-c.Stop().Done() }, nil
}

func (a *App) scheduledSync() {
	run, err := a.Sync.Start(context.Background())
	if errors.Is(err, ingest.ErrSyncInProgress) {
		a.logger.Info("scheduled sync skipped, a sync is already running")
		return
	}
	if err != nil {
		a.logger.Error("scheduled sync failed to start", "error", err)
		return
	}
	res := run.Wait()
	a.logger.Info("scheduled sync finished",
		"state", res.State,
		"new", res.TotalNew,
		"updated", res.TotalUpdated,
		"duration", res.Duration,
	)
}
