package core

import (
	"fmt"
	"time"
)

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Window is the half-open date range [Start, End) of one calendar month.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MonthNames returns the twelve accepted month names.
func MonthNames() []string {
	return monthNames[:]
}

// MonthByName resolves an English month name. Matching is case-sensitive.
func MonthByName(name string) (time.Month, error) {
	for i, n := range monthNames {
		if n == name {
			return time.Month(i + 1), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMonth, name)
}

// MonthWindow returns the window of the named month in year, in loc (UTC
// when loc is nil). December's window ends on January 1st of the next year.
func MonthWindow(year int, month string, loc *time.Location) (Window, error) {
	m, err := MonthByName(month)
	if err != nil {
		return Window{}, err
	}
	return WindowOf(year, m, loc), nil
}

// WindowOf is MonthWindow for an already resolved month.
func WindowOf(year int, month time.Month, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// CurrentWindow returns the window containing now.
func CurrentWindow(now time.Time) Window {
	return WindowOf(now.Year(), now.Month(), now.Location())
}

// Contains reports whether start <= t < end.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Year returns the window's year.
func (w Window) Year() int { return w.Start.Year() }

// MonthName returns the window's month name.
func (w Window) MonthName() string { return monthNames[w.Start.Month()-1] }

// Pin moves t into the window keeping its day of month, clamped to the
// month's last day. The result is midnight of that day in the window's
// location.
func (w Window) Pin(t time.Time) time.Time {
	lastDay := w.End.AddDate(0, 0, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(w.Start.Year(), w.Start.Month(), day, 0, 0, 0, 0, w.Start.Location())
}

func (w Window) String() string {
	return fmt.Sprintf("%s %d [%s, %s)", w.MonthName(), w.Year(),
		w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}
