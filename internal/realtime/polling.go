package realtime

import (
	"context"
	"time"
)

// PollingFeed signals a change on every tick. It serves deployments whose MongoDB has no
// change streams.
type PollingFeed struct {
	interval time.Duration
}

// NewPollingFeed returns a feed that ticks every interval.
func NewPollingFeed(interval time.Duration) *PollingFeed {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &PollingFeed{interval: interval}
}

// Watch implements Feed.
func (p *PollingFeed) Watch(ctx context.Context, _ string, changed func()) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			changed()
		}
	}
}
