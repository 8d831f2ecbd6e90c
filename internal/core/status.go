package core

import (
	"fmt"
	"strings"
)

// Status classifies an event as approved or not and indoor or outdoor.
// There is no outdoor counterpart of NOT_OK.
type Status string

const (
	StatusOK        Status = "OK"
	StatusNotOK     Status = "NOT_OK"
	StatusOutdoor   Status = "OUTDOOR"
	StatusOKOutdoor Status = "OK_OUTDOOR"
)

// InitialStatus is the value pre-selected on a blank event form.
const InitialStatus = StatusNotOK

// DefaultStatus is saved when no status was chosen.
const DefaultStatus = StatusOK

// SaveMode tells the status policy whether a record is being created or
// edited. The two modes rewrite different selections.
type SaveMode int

const (
	CreateMode SaveMode = iota
	EditMode
)

func (m SaveMode) String() string {
	if m == EditMode {
		return "edit"
	}
	return "create"
}

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusOK, StatusNotOK, StatusOutdoor, StatusOKOutdoor}
}

// IsValid reports whether s is one of the four known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusOK, StatusNotOK, StatusOutdoor, StatusOKOutdoor:
		return true
	default:
		return false
	}
}

// IsApproved reports whether s counts towards the month summary.
func (s Status) IsApproved() bool {
	return s == StatusOK || s == StatusOKOutdoor
}

// ParseStatus converts a raw value into a Status. The empty string is
// returned unchanged so callers can apply their own default.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	if s == "" || s.IsValid() {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

// ResolveStatus returns the status to persist for a save.
//
// Two selections are rewritten:
//   - editing a record whose prior status is OK_OUTDOOR and choosing OK
//     saves OUTDOOR, keeping the outdoor marker;
//   - creating a record and choosing OUTDOOR saves OK_OUTDOOR, new outdoor
//     bookings being pre-approved.
//
// Every other choice is kept; an empty choice saves DefaultStatus.
func ResolveStatus(mode SaveMode, chosen, prior Status) Status {
	switch {
	case mode == EditMode && chosen == StatusOK && prior == StatusOKOutdoor:
		return StatusOutdoor
	case mode == CreateMode && chosen == StatusOutdoor:
		return StatusOKOutdoor
	case chosen == "":
		return DefaultStatus
	default:
		return chosen
	}
}

// StatusLabel is the display name of a status.
type StatusLabel struct {
	Value Status `json:"value"`
	Label string `json:"label"`
}

// StatusLabels maps each status to its display name. Labels are a
// presentation concern only.
type StatusLabels map[Status]string

// DefaultStatusLabels returns the labels a new installation starts with.
func DefaultStatusLabels() StatusLabels {
	return StatusLabels{
		StatusOK:        "OK",
		StatusNotOK:     "NOT OK",
		StatusOutdoor:   "OUTDOOR",
		StatusOKOutdoor: "OK Outdoor",
	}
}

// Label returns the display name of s, falling back to the raw value.
func (l StatusLabels) Label(s Status) string {
	if label, ok := l[s]; ok && label != "" {
		return label
	}
	return string(s)
}

// Set replaces the label of s.
func (l StatusLabels) Set(s Status, label string) error {
	if !s.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return fmt.Errorf("%w for %s", ErrEmptyLabel, s)
	}
	l[s] = label
	return nil
}

// List returns one entry per status in display order. Missing labels are
// filled from the defaults.
func (l StatusLabels) List() []StatusLabel {
	defaults := DefaultStatusLabels()
	out := make([]StatusLabel, 0, len(defaults))
	for _, s := range Statuses() {
		label, ok := l[s]
		if !ok || label == "" {
			label = defaults[s]
		}
		out = append(out, StatusLabel{Value: s, Label: label})
	}
	return out
}

// Merge applies edited labels on top of l and returns the result. The
// receiver is left untouched.
func (l StatusLabels) Merge(edits []StatusLabel) (StatusLabels, error) {
	out := DefaultStatusLabels()
	for s, label := range l {
		out[s] = label
	}
	for _, e := range edits {
		if err := out.Set(e.Value, e.Label); err != nil {
			return nil, err
		}
	}
	return out, nil
}
