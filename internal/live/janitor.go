package live

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often the janitor reaps cancelled subscriptions.
const DefaultSweepInterval = 30 * time.Second

// StartJanitor runs a background goroutine that periodically sweeps cancelled
// subscriptions out of the hub registry and reports subscription gauges.
func StartJanitor(ctx context.Context, hub *Hub, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("subscription janitor started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				sweep(hub)
			case <-ctx.Done():
				slog.Info("subscription janitor shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweep(hub *Hub) {
	reaped := hub.Sweep()

	counts := hub.Counts()
	total := 0
	for _, n := range counts {
		total += n
	}

	if reaped > 0 {
		slog.Info("janitor reaped cancelled subscriptions", "reaped", reaped, "live", total)
	}
	slog.Debug("live subscription gauges", "topics", len(counts), "subscriptions", total)
}
