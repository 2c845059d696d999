// Package web exposes the calendar core over a small JSON API. It is
// the presentation collaborator: grid truncation and overflow counting
// happen here, on top of the projector's full match lists.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gridcal/internal/config"
	"gridcal/internal/grid"
	appLog "gridcal/internal/log"
	"gridcal/internal/model"
	"gridcal/internal/selection"
	"gridcal/internal/session"
)

// Server provides HTTP APIs for event access, import and grid rendering.
type Server struct {
	cfg     *config.Config
	session *session.Session
	loc     *time.Location
	mux     *http.ServeMux

	// One selection controller for the single user; handlers serialize
	// access since the machine itself is not concurrency-safe.
	selMu sync.Mutex
	sel   selection.Controller
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, sess *session.Session, loc *time.Location) *Server {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		cfg:     cfg,
		session: sess,
		loc:     loc,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="GridCal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/events/clear", s.handleClear)
	s.mux.HandleFunc("/api/events/", s.handleEventByUID)
	s.mux.HandleFunc("/api/import", s.handleImport)
	s.mux.HandleFunc("/api/grid", s.handleGrid)
	s.mux.HandleFunc("/api/selection", s.handleSelection)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventDTO is the JSON view of an event; field names mirror the stored
// record shape.
type eventDTO struct {
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	IsAllDay    bool      `json:"isAllDay"`
	IsRecurring bool      `json:"isRecurring"`
	Category    string    `json:"category"`
}

func toDTO(ev model.CalendarEvent) eventDTO {
	return eventDTO{
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		StartDate:   ev.Start,
		EndDate:     ev.End,
		IsAllDay:    ev.AllDay,
		IsRecurring: ev.Recurring,
		Category:    string(ev.Category),
	}
}

func toDTOs(events []model.CalendarEvent) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, toDTO(ev))
	}
	return out
}

// draftRequest is the manual-entry command body.
type draftRequest struct {
	Summary     string    `json:"summary"`
	Category    string    `json:"category"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	IsAllDay    bool      `json:"isAllDay"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
}

// handleEvents serves the full collection (GET) and manual entry (POST).
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"events": toDTOs(s.session.Events()),
		})

	case http.MethodPost:
		var req draftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.StartDate.IsZero() || req.EndDate.IsZero() {
			writeError(w, http.StatusBadRequest, "startDate and endDate are required")
			return
		}
		if req.EndDate.Before(req.StartDate) {
			writeError(w, http.StatusBadRequest, "endDate is before startDate")
			return
		}

		draft := model.EventDraft{
			Summary:     req.Summary,
			Category:    model.ParseCategory(req.Category),
			Start:       req.StartDate.In(s.loc),
			End:         req.EndDate.In(s.loc),
			AllDay:      req.IsAllDay,
			Location:    req.Location,
			Description: req.Description,
		}

		ev, err := s.session.Add(r.Context(), draft)
		if err != nil {
			// The event is in the collection regardless; report the
			// degraded save so the client can notify.
			writeJSON(w, http.StatusCreated, map[string]any{
				"event": toDTO(ev),
				"error": "event added but could not be saved",
			})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"event": toDTO(ev)})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleEventByUID serves DELETE /api/events/{uid}.
func (s *Server) handleEventByUID(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimPrefix(r.URL.Path, "/api/events/")
	if uid == "" || strings.Contains(uid, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.session.Delete(r.Context(), uid); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "event removed but deletion was not persisted")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": uid})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.session.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "collection cleared but store clear failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

// handleImport ingests an ICS payload: either the request body or, with
// ?url=, a fetched subscription feed. A malformed payload yields zero
// events and a client error, never a crash.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()

	if url := r.URL.Query().Get("url"); url != "" {
		res, err := s.session.ImportURL(ctx, url)
		if err != nil {
			appLog.Error("url import failed", err)
			writeError(w, http.StatusBadGateway, "failed to import from URL")
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	res, err := s.session.ImportPayload(ctx, body)
	if err != nil {
		appLog.Error("import failed", err)
		writeError(w, http.StatusBadRequest, "failed to parse ICS payload")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// cellDTO is one grid cell plus its visible events. Events beyond the
// per-view maximum are cut here and reported through overflow.
type cellDTO struct {
	Date           string     `json:"date"`
	IsCurrentMonth bool       `json:"isCurrentMonth"`
	IsToday        bool       `json:"isToday"`
	Events         []eventDTO `json:"events,omitempty"`
	Overflow       int        `json:"overflow,omitempty"`
	HasEvents      bool       `json:"hasEvents,omitempty"`
}

type gridResponse struct {
	View      string      `json:"view"`
	Date      string      `json:"date"`
	WeekStart string      `json:"weekStart"`
	Cells     []cellDTO   `json:"cells,omitempty"`
	Months    [][]cellDTO `json:"months,omitempty"`
}

// handleGrid builds the grid for a view and anchor date and projects the
// collection onto it.
//
// GET /api/grid?view=month&date=2025-01-15
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()

	viewName := q.Get("view")
	if viewName == "" {
		viewName = string(model.ViewMonth)
	}
	view, err := model.ParseView(viewName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	anchor, err := s.parseDateParam(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	opts := grid.Options{WeekStart: grid.ParseWeekStart(s.cfg.WeekStart)}
	events := s.session.Events()

	resp := gridResponse{
		View:      string(view),
		Date:      anchor.Format("2006-01-02"),
		WeekStart: s.cfg.WeekStart,
	}

	if view == model.ViewYear {
		// Year view: per-day markers only, no per-cell event lists.
		months := grid.BuildYear(anchor, opts)
		resp.Months = make([][]cellDTO, 0, len(months))
		for _, cells := range months {
			dtos := make([]cellDTO, 0, len(cells))
			for _, c := range cells {
				dtos = append(dtos, cellDTO{
					Date:           c.Date.Format("2006-01-02"),
					IsCurrentMonth: c.CurrentMonth,
					IsToday:        c.Today,
					HasEvents:      c.CurrentMonth && grid.HasEventsOnDate(c.Date, events),
				})
			}
			resp.Months = append(resp.Months, dtos)
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	maxEvents := s.maxEventsFor(view)
	cells := grid.Build(view, anchor, opts)
	resp.Cells = make([]cellDTO, 0, len(cells))
	for _, c := range cells {
		visible := grid.EventsOnDate(c.Date, events)
		shown := visible
		overflow := 0
		if len(visible) > maxEvents {
			shown = visible[:maxEvents]
			overflow = len(visible) - maxEvents
		}
		resp.Cells = append(resp.Cells, cellDTO{
			Date:           c.Date.Format("2006-01-02"),
			IsCurrentMonth: c.CurrentMonth,
			IsToday:        c.Today,
			Events:         toDTOs(shown),
			Overflow:       overflow,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) maxEventsFor(view model.View) int {
	switch view {
	case model.ViewDay:
		return s.cfg.MaxEvents.Day
	case model.ViewWeek:
		return s.cfg.MaxEvents.Week
	default:
		return s.cfg.MaxEvents.Month
	}
}

// selectionRequest drives the drag machine from pointer gestures.
type selectionRequest struct {
	Action string `json:"action"` // press | enter | release
	View   string `json:"view,omitempty"`
	Date   string `json:"date,omitempty"`
}

type selectionResponse struct {
	Dragging  bool   `json:"dragging"`
	Start     string `json:"start,omitempty"`
	End       string `json:"end,omitempty"`
	Committed bool   `json:"committed"`
}

// handleSelection advances the selection state machine. A release that
// spans more than one day commits the normalized range, which the client
// turns into an event-creation command; a same-day release commits
// nothing (plain click).
func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.selMu.Lock()
	defer s.selMu.Unlock()

	switch req.Action {
	case "press":
		view, err := model.ParseView(req.View)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		date, err := s.parseDateParam(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		s.sel.Press(view, date)
		s.writeSelectionState(w)

	case "enter":
		date, err := s.parseDateParam(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		s.sel.Enter(date)
		s.writeSelectionState(w)

	case "release":
		rng, committed := s.sel.Release()
		resp := selectionResponse{Committed: committed}
		if committed {
			resp.Start = rng.Start.Format("2006-01-02")
			resp.End = rng.End.Format("2006-01-02")
		}
		writeJSON(w, http.StatusOK, resp)

	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

func (s *Server) writeSelectionState(w http.ResponseWriter) {
	resp := selectionResponse{}
	if rng, ok := s.sel.Highlight(); ok {
		resp.Dragging = true
		resp.Start = rng.Start.Format("2006-01-02")
		resp.End = rng.End.Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseDateParam accepts a plain date or RFC 3339 timestamp; empty means
// now in the server's display location.
func (s *Server) parseDateParam(v string) (time.Time, error) {
	if v == "" {
		return time.Now().In(s.loc), nil
	}
	if t, err := time.ParseInLocation("2006-01-02", v, s.loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(s.loc), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to encode JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
