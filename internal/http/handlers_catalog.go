package http

import (
	"net/http"

	"caribook/internal/core"
)

type artistRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := s.artists.ListArtists(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Error loading artists. Please try again.")
		return
	}
	if artists == nil {
		artists = []core.Artist{}
	}
	NewJSONResponse().Body(artists).Write(w)
}

func (s *Server) handleCreateArtist(w http.ResponseWriter, r *http.Request) {
	var req artistRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, msgSaveFailed)
		return
	}
	artist, err := s.artists.InsertArtist(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err, "Error saving artist. Please try again.")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(artist).Write(w)
}

func (s *Server) handleListStatusLabels(w http.ResponseWriter, r *http.Request) {
	labels, err := s.labels.LoadStatusLabels(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Error loading status labels. Please try again.")
		return
	}
	NewJSONResponse().Body(labels.List()).Write(w)
}

// handleSaveStatusLabels applies the submitted labels over the stored ones.
// Statuses not in the request keep their current label.
func (s *Server) handleSaveStatusLabels(w http.ResponseWriter, r *http.Request) {
	var edits []core.StatusLabel
	if err := DecodeJSON(w, r, &edits); err != nil {
		s.writeError(w, r, err, msgSaveFailed)
		return
	}
	current, err := s.labels.LoadStatusLabels(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Error loading status labels. Please try again.")
		return
	}
	merged, err := current.Merge(edits)
	if err != nil {
		s.writeError(w, r, err, msgSaveFailed)
		return
	}
	if err := s.labels.SaveStatusLabels(r.Context(), merged); err != nil {
		s.writeError(w, r, err, "Error saving status labels. Please try again.")
		return
	}
	NewJSONResponse().Body(merged.List()).Write(w)
}

// formOptions is what a client needs to build the event form.
type formOptions struct {
	InitialStatus core.Status        `json:"initialStatus"`
	DefaultStatus core.Status        `json:"defaultStatus"`
	Statuses      []core.StatusLabel `json:"statuses"`
	Months        []string           `json:"months"`
	Timezone      string             `json:"timezone"`
}

func (s *Server) handleFormOptions(w http.ResponseWriter, r *http.Request) {
	labels, err := s.labels.LoadStatusLabels(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Error loading status labels. Please try again.")
		return
	}
	NewJSONResponse().Body(formOptions{
		InitialStatus: core.InitialStatus,
		DefaultStatus: core.DefaultStatus,
		Statuses:      labels.List(),
		Months:        core.MonthNames(),
		Timezone:      s.bookings.Location().String(),
	}).Write(w)
}
