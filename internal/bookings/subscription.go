package bookings

import (
	"context"
	"sync"

	"caribook/internal/core"
	"caribook/internal/log"
)

// Subscription is a cancellable live query over one month window.
type Subscription struct {
	gen    uint64
	window core.Window
	out    chan Snapshot
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (r *Repository) subscribe(parent context.Context, w core.Window) *Subscription {
	ctx, cancel := context.WithCancel(parent)
	s := &Subscription{
		gen:    r.gen.Add(1),
		window: w,
		out:    make(chan Snapshot, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	signal, unsubscribe := r.hub.Subscribe()

	go func() {
		defer close(s.done)
		defer close(s.out)
		defer unsubscribe()

		emit := func() bool {
			snap := r.snapshot(ctx, s.gen, w)
			if snap.Err != nil {
				r.logger.WarnContext(ctx, "Subscription query failed",
					log.FieldGeneration, s.gen, log.FieldError, snap.Err)
			}
			select {
			case s.out <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
				if !emit() {
					return
				}
			}
		}
	}()

	return s
}

// Snapshots delivers the ordered event lists. It is closed after Close.
func (s *Subscription) Snapshots() <-chan Snapshot { return s.out }

// Generation identifies this subscription among all subscriptions of the
// repository. Later subscriptions have larger generations.
func (s *Subscription) Generation() uint64 { return s.gen }

func (s *Subscription) Window() core.Window { return s.window }

// Close stops the subscription and waits for its goroutine to exit. No
// snapshot is delivered after Close returns. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
	<-s.done
}
