package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

type (
	// OtherCosts is the per-event breakdown of non-marketing costs.
	OtherCosts struct {
		Materials float64 `json:"materials"`
		Travel    float64 `json:"travel"`
		Misc      float64 `json:"misc"`
	}

	// Event is a booked engagement with scheduling, client, artist and
	// financial attributes.
	Event struct {
		ID             string     `json:"id"`
		ClientName     string     `json:"clientName"`
		Date           time.Time  `json:"date"`
		Status         Status     `json:"status"`
		ContactNumber  string     `json:"contactNumber"`
		InstagramID    string     `json:"instagramId"`
		Location       string     `json:"location"`
		StartTime      string     `json:"startTime"`
		EndTime        string     `json:"endTime"`
		Artists        []string   `json:"artists"`
		MarketingCosts float64    `json:"marketingCosts"`
		Price          float64    `json:"price"`
		AdvancePayment float64    `json:"advancePayment"`
		PendingPayment float64    `json:"pendingPayment"` // shadow value, see PendingAmount
		OtherCosts     OtherCosts `json:"otherCosts"`
		CreatedAt      time.Time  `json:"createdAt"`
		UpdatedAt      time.Time  `json:"updatedAt"`
	}

	// Artist is an entry of the artist catalog. Events store artist names
	// as plain strings, there is no link back to this record.
	Artist struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt"`
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrUnknownStatus = errors.New("unknown status")
	ErrUnknownMonth  = errors.New("unknown month name")
	ErrEmptyLabel    = errors.New("empty status label")
	ErrEmptyArtist   = errors.New("empty artist name")
	ErrArtistTooLong = errors.New("artist name too long (max 100 characters)")
)

// Total returns the sum of the three cost categories.
func (c OtherCosts) Total() float64 {
	return c.Materials + c.Travel + c.Misc
}

// HasDate reports whether the event carries a date.
func (e Event) HasDate() bool {
	return !e.Date.IsZero()
}

// Validate checks an artist name before it enters the catalog.
func (a Artist) Validate() error {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return ErrEmptyArtist
	}
	if len(name) > 100 {
		return ErrArtistTooLong
	}
	return nil
}

// SortByDate orders events ascending by date. Events without a date go last;
// ties keep their incoming order.
func SortByDate(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.HasDate() {
			return false
		}
		if !b.HasDate() {
			return true
		}
		return a.Date.Before(b.Date)
	})
}

// FilterByStatus returns the events whose status equals status. An empty
// status disables the filter.
func FilterByStatus(events []Event, status Status) []Event {
	if status == "" {
		return events
	}
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

// FindByInstagramID returns the first event in events that uses instagramID
// and is not the record identified by excludeID.
func FindByInstagramID(events []Event, instagramID, excludeID string) (Event, bool) {
	if instagramID == "" {
		return Event{}, false
	}
	for _, e := range events {
		if e.InstagramID == instagramID && (excludeID == "" || e.ID != excludeID) {
			return e, true
		}
	}
	return Event{}, false
}
