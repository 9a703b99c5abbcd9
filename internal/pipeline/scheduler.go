package pipeline

import (
	"context"
	"time"

	"vidcorpus/internal/config"
)

// Watch runs SyncNew immediately and then every interval until ctx is
// cancelled. Run failures are logged and do not stop the loop.
func (o *Orchestrator) Watch(ctx context.Context, interval time.Duration, load func() ([]config.TrackedChannel, error), opts SyncOptions) {
	o.syncOnce(ctx, load, opts)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.syncOnce(ctx, load, opts)
		}
	}
}

// syncOnce reloads the registry so edits apply without a restart.
func (o *Orchestrator) syncOnce(ctx context.Context, load func() ([]config.TrackedChannel, error), opts SyncOptions) {
	channels, err := load()
	if err != nil {
		o.log.Error("load channel registry", "error", err)
		return
	}
	if _, err := o.SyncNew(ctx, channels, opts); err != nil && ctx.Err() == nil {
		o.log.Error("sync run", "error", err)
	}
}
