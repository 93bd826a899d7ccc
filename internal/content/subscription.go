package content

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/thekoushikdurgas/diary/internal/model"
)

// Subscription is a live feed of full snapshots of one user's items.
type Subscription struct {
	closed atomic.Bool
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

// Unsubscribe stops the feed. Once it returns no snapshot is admitted for
// delivery; a callback admitted earlier may still be running. Wait on Done
// to know no callback runs anymore. It is idempotent and may be called
// from inside the callback.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.closed.Store(true)
		s.cancel()
	})
}

// admit reports whether a snapshot may still be delivered.
func (s *Subscription) admit(ctx context.Context) bool {
	return !s.closed.Load() && ctx.Err() == nil
}

// Done is closed once the feed goroutine has exited, after any running
// callback has returned.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Subscribe delivers the current snapshot immediately and a freshly
// re-fetched snapshot after every change to the user's rows. Bursts of
// changes coalesce into one re-fetch. Re-fetch failures are logged and the
// feed continues. The feed ends on Unsubscribe or when ctx is done.
func (g *Gateway) Subscribe(ctx context.Context, userID string, onSnapshot func([]model.ContentItem)) (*Subscription, error) {
	if err := requireUser("subscribe", userID); err != nil {
		return nil, err
	}

	// Attach before the first read so no change slips between the two.
	changes, detach := g.changes.Subscribe(userID)
	initial, err := g.FetchAll(ctx, userID)
	if err != nil {
		detach()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{cancel: cancel, done: make(chan struct{})}

	deliver := func(items []model.ContentItem) {
		if !s.admit(ctx) {
			return
		}
		onSnapshot(items)
	}

	go func() {
		defer close(s.done)
		defer detach()
		defer cancel()

		deliver(initial)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				items, err := g.FetchAll(ctx, userID)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					g.log.Warn().Err(err).Str("user_id", userID).Msg("subscription refetch failed")
					continue
				}
				deliver(items)
			}
		}
	}()
	return s, nil
}
