package core

import (
	"errors"
	"testing"
	"time"
)

func TestMonthWindowMarch(t *testing.T) {
	w, err := MonthWindow(2024, "March", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.Start.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", w.Start)
	}
	if !w.End.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %v", w.End)
	}
	if !w.Contains(time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("last second of March must be included")
	}
	if w.Contains(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("first instant of April must be excluded")
	}
	if !w.Contains(w.Start) {
		t.Fatalf("start must be included")
	}
	if w.Contains(w.Start.Add(-time.Nanosecond)) {
		t.Fatalf("instant before start must be excluded")
	}
}

func TestMonthWindowDecemberCrossesYear(t *testing.T) {
	w, err := MonthWindow(2024, "December", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.End.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end %v", w.End)
	}
	if w.Year() != 2024 || w.MonthName() != "December" {
		t.Fatalf("unexpected window %s", w)
	}
}

func TestMonthWindowLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	w, err := MonthWindow(2024, "March", ist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.Start.Equal(time.Date(2024, 2, 29, 18, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", w.Start.UTC())
	}
}

func TestMonthByNameCaseSensitive(t *testing.T) {
	for _, name := range []string{"march", "MARCH", "Mar", ""} {
		if _, err := MonthByName(name); !errors.Is(err, ErrUnknownMonth) {
			t.Fatalf("%q: expected ErrUnknownMonth, got %v", name, err)
		}
	}
	for i, name := range MonthNames() {
		m, err := MonthByName(name)
		if err != nil || int(m) != i+1 {
			t.Fatalf("%q: expected month %d, got %d (err=%v)", name, i+1, m, err)
		}
	}
}

func TestWindowPin(t *testing.T) {
	feb := WindowOf(2024, time.February, nil)
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2023, 7, 14, 16, 0, 0, 0, time.UTC), time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got := feb.Pin(tc.in)
		if !got.Equal(tc.want) {
			t.Fatalf("%v: expected %v, got %v", tc.in, tc.want, got)
		}
		if !feb.Contains(got) {
			t.Fatalf("%v pinned outside the window", got)
		}
	}
}

func TestCurrentWindow(t *testing.T) {
	w := CurrentWindow(fixedNow)
	if !w.Contains(fixedNow) || w.MonthName() != "March" {
		t.Fatalf("unexpected current window %s", w)
	}
}
