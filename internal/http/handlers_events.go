package http

import (
	"fmt"
	"net/http"
	"time"

	"caribook/internal/core"
	"caribook/internal/invoice"
	"caribook/internal/log"
)

// eventView is an event as the month screen shows it.
type eventView struct {
	core.Event
	// DisplayDate is the event date, or today for records without one.
	DisplayDate   time.Time `json:"displayDate"`
	NetEarnings   float64   `json:"netEarnings"`
	PendingAmount float64   `json:"pendingAmount"`
}

type monthResponse struct {
	Window      core.Window        `json:"window"`
	Status      core.Status        `json:"status,omitempty"`
	Events      []eventView        `json:"events"`
	NetEarnings map[string]float64 `json:"netEarnings"`
	Summary     core.MonthSummary  `json:"summary"`
}

type invoicePreview struct {
	invoice.Data
	Reference  string  `json:"reference"`
	FileName   string  `json:"fileName"`
	BalanceDue float64 `json:"balanceDue"`
}

func viewsOf(events []core.Event, now time.Time) []eventView {
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		display := e.Date
		if !e.HasDate() {
			display = now
		}
		out = append(out, eventView{
			Event:         e,
			DisplayDate:   display,
			NetEarnings:   core.NetEarnings(e),
			PendingAmount: core.PendingAmount(e),
		})
	}
	return out
}

type statusResponse struct {
	Status      core.Status        `json:"status,omitempty"`
	Events      []eventView        `json:"events"`
	NetEarnings map[string]float64 `json:"netEarnings"`
}

// handleListEvents serves one month, or every month with scope=all.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status, err := ParseStatusParam(query)
	if err != nil {
		s.writeError(w, r, err, msgLoadFailed)
		return
	}
	if query.Get("scope") == "all" {
		s.listAcrossMonths(w, r, status)
		return
	}
	params, err := ParseMonthParams(query, s.bookings.Now())
	if err != nil {
		s.writeError(w, r, err, msgLoadFailed)
		return
	}

	view, err := s.events.Month(r.Context(), params.Year, params.Month, status)
	if err != nil {
		s.writeError(w, r, err, msgLoadFailed)
		return
	}
	NewJSONResponse().Body(monthResponse{
		Window:      view.Window,
		Status:      view.Status,
		Events:      viewsOf(view.Events, s.bookings.Now()),
		NetEarnings: view.NetEarnings,
		Summary:     view.Summary,
	}).Write(w)
}

func (s *Server) listAcrossMonths(w http.ResponseWriter, r *http.Request, status core.Status) {
	view, err := s.events.AcrossMonths(r.Context(), status)
	if err != nil {
		s.writeError(w, r, err, msgLoadFailed)
		return
	}
	NewJSONResponse().Body(statusResponse{
		Status:      view.Status,
		Events:      viewsOf(view.Events, s.bookings.Now()),
		NetEarnings: view.NetEarnings,
	}).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.bookings.Now())
	if err != nil {
		s.writeError(w, r, err, msgLoadFailed)
		return
	}
	summary, err := s.events.Summary(r.Context(), params.Year, params.Month)
	if err != nil {
		s.writeError(w, r, err, msgLoadFailed)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.events.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, msgLoadFailed)
		return
	}
	NewJSONResponse().Body(viewsOf([]core.Event{e}, s.bookings.Now())[0]).Write(w)
}

// handleCreateEvent saves a new event. When the query names a month the
// date is pinned into it and duplicates are checked against that month.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	window, err := ParseWindowParams(r.URL.Query(), s.bookings.Now())
	if err != nil {
		s.writeError(w, r, err, msgSaveFailed)
		return
	}
	var form core.EventForm
	if err := DecodeJSON(w, r, &form); err != nil {
		s.writeError(w, r, err, msgSaveFailed)
		return
	}

	saved, err := s.events.Create(r.Context(), window, form)
	if err != nil {
		s.writeError(w, r, err, msgSaveFailed)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", fmt.Sprintf("/api/events/%s", saved.ID)).
		Body(viewsOf([]core.Event{saved}, s.bookings.Now())[0]).
		Write(w)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	window, err := ParseWindowParams(r.URL.Query(), s.bookings.Now())
	if err != nil {
		s.writeError(w, r, err, msgSaveFailed)
		return
	}
	var form core.EventForm
	if err := DecodeJSON(w, r, &form); err != nil {
		s.writeError(w, r, err, msgSaveFailed)
		return
	}

	saved, err := s.events.Update(r.Context(), window, r.PathValue("id"), form)
	if err != nil {
		s.writeError(w, r, err, msgSaveFailed)
		return
	}
	NewJSONResponse().Body(viewsOf([]core.Event{saved}, s.bookings.Now())[0]).Write(w)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.events.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err, "Error deleting event. Please try again.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleInvoice serves the PDF, or the invoice fields as JSON with
// format=json.
func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "json" {
		packet, err := s.invoices.Packet(r.Context(), r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, err, msgLoadFailed)
			return
		}
		NewJSONResponse().Body(invoicePreview{
			Data:       packet,
			Reference:  packet.Reference(),
			FileName:   packet.FileName(),
			BalanceDue: packet.BalanceDue(),
		}).Write(w)
		return
	}

	doc, err := s.invoices.Document(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err, "Error generating invoice. Please try again.")
		return
	}
	log.FromContext(r.Context()).DebugContext(r.Context(), "Serving invoice",
		log.FieldEventID, r.PathValue("id"),
		"bytes", len(doc.Content))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	w.Header().Set("Content-Length", fmt.Sprint(len(doc.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
}
