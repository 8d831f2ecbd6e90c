package bookings

import (
	"context"
	"sync"

	"caribook/internal/core"
)

// ViewState is the serializable selection of a session.
type ViewState struct {
	Year   int         `json:"year"`
	Month  string      `json:"month"`
	Status core.Status `json:"status,omitempty"`
}

// Session follows one month at a time. Selecting another month replaces the
// subscription, and snapshots still in flight from an older subscription
// are dropped by generation.
type Session struct {
	repo    *Repository
	updates chan Snapshot

	mu     sync.Mutex
	state  ViewState
	sub    *Subscription
	latest Snapshot
	loaded bool
	closed bool
	wg     sync.WaitGroup
}

func NewSession(repo *Repository) *Session {
	return &Session{
		repo:    repo,
		updates: make(chan Snapshot, 1),
	}
}

// Select switches the session to year/month. The previous subscription is
// stopped before the next one starts. An unknown month leaves the current
// selection untouched.
func (s *Session) Select(ctx context.Context, year int, month string) error {
	w, err := s.repo.Window(year, month)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return context.Canceled
	}

	if s.sub != nil {
		s.sub.Close()
	}
	sub := s.repo.subscribe(context.WithoutCancel(ctx), w)
	s.sub = sub
	s.state.Year = year
	s.state.Month = month
	s.loaded = false

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for snap := range sub.Snapshots() {
			s.deliver(snap)
		}
	}()
	return nil
}

// SetStatus changes the status filter applied by View. Empty means all.
func (s *Session) SetStatus(status core.Status) error {
	if status != "" && !status.IsValid() {
		return core.ErrUnknownStatus
	}
	s.mu.Lock()
	s.state.Status = status
	s.mu.Unlock()
	return nil
}

// State returns the current selection.
func (s *Session) State() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Generation returns the generation of the current subscription, or 0
// before the first Select.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return 0
	}
	return s.sub.Generation()
}

// Updates signals accepted snapshots. Only the most recent one is kept if
// the reader falls behind.
func (s *Session) Updates() <-chan Snapshot { return s.updates }

// Latest returns the last accepted snapshot of the current selection.
func (s *Session) Latest() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.loaded
}

// View returns the current window's events with the status filter applied.
func (s *Session) View() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return Snapshot{}, false
	}
	snap := s.latest
	snap.Events = core.FilterByStatus(snap.Events, s.state.Status)
	return snap, true
}

// Close stops the current subscription. Updates is closed once every
// pending delivery has drained.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	s.wg.Wait()
	close(s.updates)
}

func (s *Session) deliver(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub == nil || snap.Generation != s.sub.Generation() {
		return
	}
	s.latest = snap
	s.loaded = true

	select {
	case <-s.updates:
	default:
	}
	s.updates <- snap
}
