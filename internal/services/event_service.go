package services

import (
	"context"
	"errors"
	"fmt"

	"caribook/internal/bookings"
	"caribook/internal/core"
	"caribook/internal/log"
)

// ErrDuplicateInstagramID is returned when another event of the loaded
// window already uses the same Instagram handle.
var ErrDuplicateInstagramID = errors.New("duplicate instagram id")

// Publisher announces event changes to other processes.
type Publisher interface {
	PublishEventSync(ctx context.Context, id string, version int64) error
	PublishEventDelete(ctx context.Context, id string) error
}

// VersionSource reports the current version of an event row.
type VersionSource interface {
	EventVersion(ctx context.Context, id string) (int64, error)
}

// EventService orchestrates saves: status policy, uniqueness of the
// Instagram handle within the loaded window, persistence and change
// announcement.
type EventService struct {
	repo      *bookings.Repository
	versions  VersionSource
	publisher Publisher
	logger    *log.Logger
}

// NewEventService wires the service. versions and publisher may be nil,
// in which case writes are not announced.
func NewEventService(repo *bookings.Repository, versions VersionSource, publisher Publisher, logger *log.Logger) *EventService {
	if logger == nil {
		logger = log.Nop()
	}
	return &EventService{
		repo:      repo,
		versions:  versions,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentEvents),
	}
}

// MonthView is the month screen: the window's events after the status
// filter, per-event net earnings and the month summary. The summary covers
// the whole window regardless of the filter.
type MonthView struct {
	Window      core.Window        `json:"window"`
	Status      core.Status        `json:"status,omitempty"`
	Events      []core.Event       `json:"events"`
	NetEarnings map[string]float64 `json:"netEarnings"`
	Summary     core.MonthSummary  `json:"summary"`
}

func (s *EventService) Month(ctx context.Context, year int, month string, status core.Status) (MonthView, error) {
	if status != "" && !status.IsValid() {
		return MonthView{}, fmt.Errorf("%w: %q", core.ErrUnknownStatus, status)
	}
	w, err := s.repo.Window(year, month)
	if err != nil {
		return MonthView{}, err
	}
	events, err := s.repo.Query(ctx, w)
	if err != nil {
		return MonthView{}, err
	}
	filtered := core.FilterByStatus(events, status)
	return MonthView{
		Window:      w,
		Status:      status,
		Events:      filtered,
		NetEarnings: core.NetEarningsByID(filtered),
		Summary:     core.Summarize(events),
	}, nil
}

// StatusView lists events of every month, optionally narrowed to one
// status.
type StatusView struct {
	Status      core.Status        `json:"status,omitempty"`
	Events      []core.Event       `json:"events"`
	NetEarnings map[string]float64 `json:"netEarnings"`
}

// AcrossMonths scans the whole collection and filters it by status.
func (s *EventService) AcrossMonths(ctx context.Context, status core.Status) (StatusView, error) {
	if status != "" && !status.IsValid() {
		return StatusView{}, fmt.Errorf("%w: %q", core.ErrUnknownStatus, status)
	}
	events, err := s.repo.ListAll(ctx)
	if err != nil {
		return StatusView{}, err
	}
	filtered := core.FilterByStatus(events, status)
	return StatusView{
		Status:      status,
		Events:      filtered,
		NetEarnings: core.NetEarningsByID(filtered),
	}, nil
}

// Summary returns the approved-events totals of a month.
func (s *EventService) Summary(ctx context.Context, year int, month string) (core.MonthSummary, error) {
	w, err := s.repo.Window(year, month)
	if err != nil {
		return core.MonthSummary{}, err
	}
	events, err := s.repo.Query(ctx, w)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return core.Summarize(events), nil
}

// Create saves a new event. When w is set the event date is pinned into
// it and w is the window checked for duplicate handles, otherwise the
// window containing the event date is used.
func (s *EventService) Create(ctx context.Context, w *core.Window, form core.EventForm) (core.Event, error) {
	var chosen core.Status
	if form.Status != nil {
		chosen = *form.Status
	}
	status := core.ResolveStatus(core.CreateMode, chosen, "")
	form.Status = &status

	candidate, err := core.Normalize(form, s.repo.Now())
	if err != nil {
		return core.Event{}, err
	}
	if w != nil {
		date := core.FormatDate(w.Pin(candidate.Date.In(w.Start.Location())))
		form.Date = &date
		candidate.Date, _ = core.ParseDate(date, w.Start.Location())
	}

	if err := s.checkUnique(ctx, w, candidate, ""); err != nil {
		return core.Event{}, err
	}

	id, err := s.repo.Create(ctx, form)
	if err != nil {
		return core.Event{}, err
	}
	saved, err := s.repo.Get(ctx, id)
	if err != nil {
		return core.Event{}, err
	}

	s.logSaved(ctx, log.OpCreate, saved)
	s.announce(ctx, saved.ID)
	return saved, nil
}

// Update applies the supplied fields of form to event id. A chosen status
// goes through the edit-mode status policy against the stored status.
func (s *EventService) Update(ctx context.Context, w *core.Window, id string, form core.EventForm) (core.Event, error) {
	prior, err := s.repo.Get(ctx, id)
	if err != nil {
		return core.Event{}, err
	}
	if form.Status != nil {
		status := core.ResolveStatus(core.EditMode, *form.Status, prior.Status)
		form.Status = &status
	}

	candidate, err := core.Normalize(core.Merge(prior, form), s.repo.Now())
	if err != nil {
		return core.Event{}, err
	}
	if err := s.checkUnique(ctx, w, candidate, id); err != nil {
		return core.Event{}, err
	}

	if err := s.repo.Update(ctx, id, form); err != nil {
		return core.Event{}, err
	}
	saved, err := s.repo.Get(ctx, id)
	if err != nil {
		return core.Event{}, err
	}

	s.logSaved(ctx, log.OpUpdate, saved)
	s.announce(ctx, saved.ID)
	return saved, nil
}

// Delete removes event id and announces the removal.
func (s *EventService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Event deleted", log.FieldEventID, id)

	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishEventDelete(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish delete message",
			log.FieldEventID, id, log.FieldError, err)
	}
	return nil
}

// Get returns one event.
func (s *EventService) Get(ctx context.Context, id string) (core.Event, error) {
	return s.repo.Get(ctx, id)
}

// checkUnique scans the window for another event with the same non-empty
// handle. The check is only as fresh as the read and spans one window.
func (s *EventService) checkUnique(ctx context.Context, w *core.Window, e core.Event, excludeID string) error {
	if e.InstagramID == "" {
		return nil
	}
	window := core.CurrentWindow(e.Date.In(s.repo.Location()))
	if w != nil {
		window = *w
	}
	events, err := s.repo.Query(ctx, window)
	if err != nil {
		return err
	}
	if other, ok := core.FindByInstagramID(events, e.InstagramID, excludeID); ok {
		s.logger.InfoContext(ctx, "Duplicate Instagram ID rejected",
			log.FieldInstagramID, e.InstagramID, log.FieldEventID, other.ID)
		return ErrDuplicateInstagramID
	}
	return nil
}

// announce publishes a sync message. Failures are logged, the write has
// already succeeded.
func (s *EventService) announce(ctx context.Context, id string) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping sync message")
		return
	}

	version := int64(1)
	if s.versions != nil {
		v, err := s.versions.EventVersion(ctx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to read event version", log.FieldEventID, id, log.FieldError, err)
		} else {
			version = v
		}
	}

	if err := s.publisher.PublishEventSync(ctx, id, version); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish sync message",
			log.FieldEventID, id, "version", version, log.FieldError, err)
	}
}

func (s *EventService) logSaved(ctx context.Context, op string, e core.Event) {
	log.NewStructuredLogger(s.logger).LogEventSaved(ctx, op, e.ID, string(e.Status), core.FormatDate(e.Date), e.Price)
}
