package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"caribook/internal/auth"
	"caribook/internal/bookings"
	"caribook/internal/core"
	"caribook/internal/log"
)

var errSessionsClosed = errors.New("server is shutting down")

type streamSession struct {
	owner   string
	session *bookings.Session
	// refresh asks the stream to resend the current view after a filter
	// change, which produces no new snapshot.
	refresh chan struct{}
}

// sessionRegistry tracks the open month streams so their view can be
// changed by id and so shutdown can end them.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*streamSession
	closed   bool
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: map[string]*streamSession{}}
}

func (r *sessionRegistry) add(id string, s *streamSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errSessionsClosed
	}
	r.sessions[id] = s
	return nil
}

func (r *sessionRegistry) get(id string) (*streamSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *sessionRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *sessionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// closeAll ends every stream and refuses new ones.
func (r *sessionRegistry) closeAll() {
	r.mu.Lock()
	r.closed = true
	open := make([]*streamSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		open = append(open, s)
	}
	r.mu.Unlock()

	for _, s := range open {
		s.session.Close()
	}
}

type sessionEvent struct {
	ID   string             `json:"id"`
	View bookings.ViewState `json:"view"`
}

type snapshotEvent struct {
	Generation uint64             `json:"generation"`
	View       bookings.ViewState `json:"view"`
	monthResponse
}

type viewRequest struct {
	Year   int         `json:"year"`
	Month  string      `json:"month"`
	Status core.Status `json:"status"`
}

// handleStream follows a month over server-sent events. The first event
// names the session, every later one is a full snapshot of the month.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params, err := ParseMonthParams(query, s.bookings.Now())
	if err != nil {
		s.writeError(w, r, err, msgLoadFailed)
		return
	}
	status, err := ParseStatusParam(query)
	if err != nil {
		s.writeError(w, r, err, msgLoadFailed)
		return
	}

	session := bookings.NewSession(s.bookings)
	if err := session.Select(r.Context(), params.Year, params.Month); err != nil {
		session.Close()
		s.writeError(w, r, err, msgLoadFailed)
		return
	}
	if err := session.SetStatus(status); err != nil {
		session.Close()
		s.writeError(w, r, err, msgLoadFailed)
		return
	}

	profile, _ := auth.FromContext(r.Context())
	id := uuid.NewString()
	entry := &streamSession{owner: profile.UID, session: session, refresh: make(chan struct{}, 1)}
	if err := s.sessions.add(id, entry); err != nil {
		session.Close()
		ErrorResponse(http.StatusServiceUnavailable, "Server is shutting down").Write(w)
		return
	}
	defer func() {
		s.sessions.remove(id)
		session.Close()
	}()

	logger := log.FromContext(r.Context()).With("session_id", id)
	logger.InfoContext(r.Context(), "Stream opened",
		log.FieldOperation, log.OpSubscribe,
		log.FieldYear, params.Year,
		log.FieldMonth, params.Month)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	send := func(name string, payload any) bool {
		if err := writeSSE(w, name, payload); err != nil {
			logger.DebugContext(r.Context(), "Stream write failed", log.FieldError, err)
			return false
		}
		if err := rc.Flush(); err != nil {
			logger.WarnContext(r.Context(), "Stream flush failed", log.FieldError, err)
			return false
		}
		return true
	}

	if !send("session", sessionEvent{ID: id, View: session.State()}) {
		return
	}

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.InfoContext(r.Context(), "Stream closed by client")
			return
		case _, ok := <-session.Updates():
			if !ok {
				logger.InfoContext(r.Context(), "Stream ended")
				return
			}
			if !s.sendSnapshot(r, session, send) {
				return
			}
		case <-entry.refresh:
			if !s.sendSnapshot(r, session, send) {
				return
			}
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// sendSnapshot writes the session's current view. A failed read is sent as
// an error event and the stream stays open for the next change.
func (s *Server) sendSnapshot(r *http.Request, session *bookings.Session, send func(string, any) bool) bool {
	latest, ok := session.Latest()
	if !ok {
		return true
	}
	if latest.Err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Snapshot read failed",
			log.FieldGeneration, latest.Generation,
			log.FieldError, latest.Err)
		return send("error", errorBody{Error: msgLoadFailed})
	}
	view, _ := session.View()
	state := session.State()
	return send("snapshot", snapshotEvent{
		Generation: view.Generation,
		View:       state,
		monthResponse: monthResponse{
			Window:      view.Window,
			Status:      state.Status,
			Events:      viewsOf(view.Events, s.bookings.Now()),
			NetEarnings: core.NetEarningsByID(view.Events),
			Summary:     core.Summarize(latest.Events),
		},
	})
}

// handleSessionView changes what an open stream follows. Only the owner of
// the stream may steer it.
func (s *Server) handleSessionView(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.sessions.get(r.PathValue("id"))
	profile, _ := auth.FromContext(r.Context())
	if !ok || entry.owner != profile.UID {
		NotFoundError(msgNotFound).Write(w)
		return
	}

	var req viewRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err, msgLoadFailed)
		return
	}
	if req.Status != "" && !req.Status.IsValid() {
		s.writeError(w, r, fmt.Errorf("%w: %q", core.ErrUnknownStatus, req.Status), msgLoadFailed)
		return
	}

	current := entry.session.State()
	if req.Year == 0 {
		req.Year = current.Year
	}
	if req.Month == "" {
		req.Month = current.Month
	}

	if req.Year != current.Year || req.Month != current.Month {
		if err := entry.session.Select(r.Context(), req.Year, req.Month); err != nil {
			s.writeError(w, r, err, msgLoadFailed)
			return
		}
	}
	if err := entry.session.SetStatus(req.Status); err != nil {
		s.writeError(w, r, err, msgLoadFailed)
		return
	}

	select {
	case entry.refresh <- struct{}{}:
	default:
	}
	NewJSONResponse().Body(entry.session.State()).Write(w)
}

func writeSSE(w io.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
