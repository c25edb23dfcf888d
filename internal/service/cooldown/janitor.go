package cooldown

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is implemented by stores that evict idle entries.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// RunJanitor sweeps s every interval until ctx is done.
func RunJanitor(ctx context.Context, log *slog.Logger, s Sweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Sweep(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("cooldown sweep failed", slog.String("error", err.Error()))
				}
				continue
			}
			if removed > 0 {
				log.Debug("cooldown entries evicted", slog.Int("removed", removed))
			}
		}
	}
}
