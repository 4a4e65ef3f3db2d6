// Package realtime turns collection change notifications into replace-all snapshots.
package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMinBackoff = time.Second
	defaultMaxBackoff = 30 * time.Second
)

// Feed reports that a collection changed. Watch blocks until ctx is done or the feed
// fails, and calls changed from its own goroutine.
type Feed interface {
	Watch(ctx context.Context, collection string, changed func()) error
}

// Hub owns the lifetime of every subscription.
type Hub struct {
	ctx    context.Context
	cancel context.CancelFunc
	feed   Feed
	logger *zap.Logger
	wg     sync.WaitGroup

	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewHub creates a hub backed by feed.
func NewHub(feed Feed, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		ctx:        ctx,
		cancel:     cancel,
		feed:       feed,
		logger:     logger,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
	}
}

// Close stops every subscription and waits for their goroutines.
func (h *Hub) Close() {
	h.cancel()
	h.wg.Wait()
}

// Subscribe delivers the full record set of collection to onChange once on subscribe and
// again after every change. Bursts of changes collapse into one reload. Load and feed
// errors go to onError; the feed is retried with back-off until the returned function is
// called. The unsubscribe function must not be called from onChange or onError.
func Subscribe[T any](
	h *Hub,
	collection string,
	load func(ctx context.Context) ([]T, error),
	onChange func(records []T),
	onError func(err error),
) (unsubscribe func()) {
	ctx, cancel := context.WithCancel(h.ctx)
	logger := h.logger.With(zap.String("collection", collection))
	report := func(err error) {
		logger.Warn("subscription error", zap.Error(err))
		if onError != nil {
			onError(err)
		}
	}

	pending := make(chan struct{}, 1)
	changed := func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	}
	changed()

	var wg sync.WaitGroup
	wg.Add(2)
	h.wg.Add(2)

	go func() {
		defer h.wg.Done()
		defer wg.Done()
		h.watch(ctx, collection, changed, report)
	}()

	go func() {
		defer h.wg.Done()
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-pending:
			}

			records, err := load(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				report(err)
				continue
			}
			onChange(records)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}

func (h *Hub) watch(ctx context.Context, collection string, changed func(), report func(error)) {
	backoff := h.minBackoff
	for {
		err := h.feed.Watch(ctx, collection, func() {
			backoff = h.minBackoff
			changed()
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			report(err)
		}

		// Events may have been missed while the feed was down.
		changed()

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, h.maxBackoff)
	}
}
