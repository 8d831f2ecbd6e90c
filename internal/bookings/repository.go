// Package bookings is the event repository: live month subscriptions and
// the create, update and delete operations that feed them.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"caribook/internal/core"
	"caribook/internal/log"
	"caribook/internal/store"
)

// ErrNoIdentity is returned when the store confirms a write without
// assigning an identifier.
var ErrNoIdentity = errors.New("store returned an event without identity")

// Snapshot is one delivery of a subscription: the full ordered list of
// events in the window, or the error that prevented reading it.
type Snapshot struct {
	Generation uint64
	Window     core.Window
	Events     []core.Event
	Err        error
}

type Repository struct {
	events store.EventStore
	hub    *Hub
	loc    *time.Location
	now    func() time.Time
	logger *log.Logger
	gen    atomic.Uint64
}

type Option func(*Repository)

// WithLocation sets the zone month windows are computed in.
func WithLocation(loc *time.Location) Option {
	return func(r *Repository) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithClock overrides the source of "now" used for missing dates.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

func NewRepository(events store.EventStore, opts ...Option) *Repository {
	r := &Repository{
		events: events,
		hub:    NewHub(),
		loc:    time.UTC,
		now:    time.Now,
		logger: log.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	r.logger = r.logger.WithComponent(log.ComponentBookings)
	return r
}

// Hub exposes the change hub so that other writers can announce changes.
func (r *Repository) Hub() *Hub { return r.hub }

// Location returns the zone month windows are computed in.
func (r *Repository) Location() *time.Location { return r.loc }

// Now returns the repository's current time.
func (r *Repository) Now() time.Time { return r.now().In(r.loc) }

// Window resolves a year and month name. Unknown names fail fast.
func (r *Repository) Window(year int, month string) (core.Window, error) {
	return core.MonthWindow(year, month, r.loc)
}

// Query reads the events of w once, ordered by date ascending.
func (r *Repository) Query(ctx context.Context, w core.Window) ([]core.Event, error) {
	events, err := r.events.ListEventsBetween(ctx, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", w, err)
	}
	core.SortByDate(events)
	return events, nil
}

// ListAll reads every event regardless of date.
func (r *Repository) ListAll(ctx context.Context) ([]core.Event, error) {
	events, err := r.events.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	core.SortByDate(events)
	return events, nil
}

func (r *Repository) Get(ctx context.Context, id string) (core.Event, error) {
	e, err := r.events.GetEvent(ctx, id)
	if err != nil {
		return core.Event{}, fmt.Errorf("get event %s: %w", id, err)
	}
	return e, nil
}

// Subscribe starts a live query of the named month. The first snapshot is
// delivered immediately, then one after every change announced on the hub.
func (r *Repository) Subscribe(ctx context.Context, year int, month string) (*Subscription, error) {
	w, err := r.Window(year, month)
	if err != nil {
		return nil, err
	}
	return r.subscribe(ctx, w), nil
}

// Create normalizes form and persists it as a new record.
func (r *Repository) Create(ctx context.Context, form core.EventForm) (string, error) {
	e, err := core.Normalize(form, r.Now())
	if err != nil {
		return "", err
	}
	saved, err := r.events.InsertEvent(ctx, e)
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	if saved.ID == "" {
		return "", ErrNoIdentity
	}
	r.logger.DebugContext(ctx, "Event created", log.FieldEventID, saved.ID)
	r.hub.Publish()
	return saved.ID, nil
}

// Update overlays the supplied fields of form onto the stored record.
// Identity and creation time are kept.
func (r *Repository) Update(ctx context.Context, id string, form core.EventForm) error {
	base, err := r.events.GetEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("get event %s: %w", id, err)
	}
	e, err := core.Normalize(core.Merge(base, form), r.Now())
	if err != nil {
		return err
	}
	e.ID = base.ID
	e.CreatedAt = base.CreatedAt
	if _, err := r.events.ReplaceEvent(ctx, e); err != nil {
		return fmt.Errorf("replace event %s: %w", id, err)
	}
	r.logger.DebugContext(ctx, "Event updated", log.FieldEventID, id)
	r.hub.Publish()
	return nil
}

// Delete removes the record permanently.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.events.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	r.logger.DebugContext(ctx, "Event deleted", log.FieldEventID, id)
	r.hub.Publish()
	return nil
}

func (r *Repository) snapshot(ctx context.Context, gen uint64, w core.Window) Snapshot {
	events, err := r.Query(ctx, w)
	if err != nil {
		return Snapshot{Generation: gen, Window: w, Err: err}
	}
	return Snapshot{Generation: gen, Window: w, Events: events}
}
