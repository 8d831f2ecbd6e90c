package core

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of event dates.
const DateLayout = time.RFC3339Nano

var zonedLayouts = []string{time.RFC3339Nano}

// Layouts without a zone are read in the caller's location.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

type (
	// EventForm is raw event input. Nil fields were not supplied.
	EventForm struct {
		Date           *string         `json:"date,omitempty"`
		ClientName     *string         `json:"clientName,omitempty"`
		Status         *Status         `json:"status,omitempty"`
		ContactNumber  *string         `json:"contactNumber,omitempty"`
		InstagramID    *string         `json:"instagramId,omitempty"`
		Location       *string         `json:"location,omitempty"`
		StartTime      *string         `json:"startTime,omitempty"`
		EndTime        *string         `json:"endTime,omitempty"`
		Artists        []string        `json:"artists,omitempty"`
		MarketingCosts *Number         `json:"marketingCosts,omitempty"`
		Price          *Number         `json:"price,omitempty"`
		AdvancePayment *Number         `json:"advancePayment,omitempty"`
		PendingPayment *Number         `json:"pendingPayment,omitempty"`
		OtherCosts     *OtherCostsForm `json:"otherCosts,omitempty"`
	}

	// OtherCostsForm is the raw cost breakdown. Each field defaults to zero
	// on its own.
	OtherCostsForm struct {
		Materials *Number `json:"materials,omitempty"`
		Travel    *Number `json:"travel,omitempty"`
		Misc      *Number `json:"misc,omitempty"`
	}
)

// ParseDate accepts RFC3339 date-times, local date-times without zone and
// bare dates. Values without a zone are read in loc, UTC when loc is nil.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// FormatDate renders t in the wire format.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Normalize turns raw input into a record ready for persistence. It has no
// side effects and normalizing the form of a normalized record returns the
// same record. ID and timestamps are left zero for the store to assign.
//
//   - a missing or blank date becomes now, a date without zone is read in
//     now's location;
//   - every amount is coerced to a number, invalid input becoming 0;
//     costs, price and advance are clamped at 0, the pending shadow value
//     keeps its sign;
//   - otherCosts is always complete, missing parts become 0;
//   - blank artist entries are dropped, order is kept;
//   - a missing status becomes DefaultStatus.
func Normalize(form EventForm, now time.Time) (Event, error) {
	e := Event{
		ClientName:     text(form.ClientName),
		ContactNumber:  text(form.ContactNumber),
		InstagramID:    text(form.InstagramID),
		Location:       text(form.Location),
		StartTime:      text(form.StartTime),
		EndTime:        text(form.EndTime),
		Artists:        cleanArtists(form.Artists),
		MarketingCosts: nonNegative(numberValue(form.MarketingCosts)),
		Price:          nonNegative(numberValue(form.Price)),
		AdvancePayment: nonNegative(numberValue(form.AdvancePayment)),
		PendingPayment: numberValue(form.PendingPayment),
	}
	if oc := form.OtherCosts; oc != nil {
		e.OtherCosts = OtherCosts{
			Materials: nonNegative(numberValue(oc.Materials)),
			Travel:    nonNegative(numberValue(oc.Travel)),
			Misc:      nonNegative(numberValue(oc.Misc)),
		}
	}

	if form.Date == nil || strings.TrimSpace(*form.Date) == "" {
		e.Date = now.UTC()
	} else {
		d, err := ParseDate(*form.Date, now.Location())
		if err != nil {
			return Event{}, err
		}
		e.Date = d
	}

	e.Status = DefaultStatus
	if form.Status != nil && *form.Status != "" {
		if !form.Status.IsValid() {
			return Event{}, fmt.Errorf("%w: %q", ErrUnknownStatus, *form.Status)
		}
		e.Status = *form.Status
	}

	return e, nil
}

// FormOf returns a fully supplied form carrying e's values.
func FormOf(e Event) EventForm {
	status := e.Status
	f := EventForm{
		ClientName:     str(e.ClientName),
		Status:         &status,
		ContactNumber:  str(e.ContactNumber),
		InstagramID:    str(e.InstagramID),
		Location:       str(e.Location),
		StartTime:      str(e.StartTime),
		EndTime:        str(e.EndTime),
		Artists:        append([]string{}, e.Artists...),
		MarketingCosts: NumberOf(e.MarketingCosts),
		Price:          NumberOf(e.Price),
		AdvancePayment: NumberOf(e.AdvancePayment),
		PendingPayment: NumberOf(e.PendingPayment),
		OtherCosts: &OtherCostsForm{
			Materials: NumberOf(e.OtherCosts.Materials),
			Travel:    NumberOf(e.OtherCosts.Travel),
			Misc:      NumberOf(e.OtherCosts.Misc),
		},
	}
	if e.HasDate() {
		f.Date = str(FormatDate(e.Date))
	}
	return f
}

// Merge overlays the supplied fields of patch onto base's values. Cost
// breakdown fields are overlaid one by one.
func Merge(base Event, patch EventForm) EventForm {
	f := FormOf(base)
	if patch.Date != nil {
		f.Date = patch.Date
	}
	if patch.ClientName != nil {
		f.ClientName = patch.ClientName
	}
	if patch.Status != nil {
		f.Status = patch.Status
	}
	if patch.ContactNumber != nil {
		f.ContactNumber = patch.ContactNumber
	}
	if patch.InstagramID != nil {
		f.InstagramID = patch.InstagramID
	}
	if patch.Location != nil {
		f.Location = patch.Location
	}
	if patch.StartTime != nil {
		f.StartTime = patch.StartTime
	}
	if patch.EndTime != nil {
		f.EndTime = patch.EndTime
	}
	if patch.Artists != nil {
		f.Artists = patch.Artists
	}
	if patch.MarketingCosts != nil {
		f.MarketingCosts = patch.MarketingCosts
	}
	if patch.Price != nil {
		f.Price = patch.Price
	}
	if patch.AdvancePayment != nil {
		f.AdvancePayment = patch.AdvancePayment
	}
	if patch.PendingPayment != nil {
		f.PendingPayment = patch.PendingPayment
	}
	if oc := patch.OtherCosts; oc != nil {
		if oc.Materials != nil {
			f.OtherCosts.Materials = oc.Materials
		}
		if oc.Travel != nil {
			f.OtherCosts.Travel = oc.Travel
		}
		if oc.Misc != nil {
			f.OtherCosts.Misc = oc.Misc
		}
	}
	return f
}

func cleanArtists(in []string) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		a = sanitizeText(a)
		if a == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return sanitizeText(*s)
}

func str(s string) *string {
	return &s
}

// sanitizeText drops control characters other than tab, newline and
// carriage return, then trims surrounding whitespace.
func sanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
