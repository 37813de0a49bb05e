package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jensandresen/schemapush/internal/agenda"
	"github.com/jensandresen/schemapush/internal/app"
	"github.com/jensandresen/schemapush/internal/config"
	appLog "github.com/jensandresen/schemapush/internal/log"
	"github.com/jensandresen/schemapush/internal/model"
)

// dayCacheTTL keeps repeated /api/day requests from refetching the feed.
const dayCacheTTL = 30 * time.Second

// Server provides HTTP APIs over the configured calendars.
type Server struct {
	cfg *config.Config
	app *app.App
	mux *http.ServeMux

	now func() time.Time

	dayMu    sync.RWMutex
	dayCache map[string]dayCacheEntry
}

type dayCacheEntry struct {
	resp      dayResponse
	updatedAt time.Time
}

// NewServer constructs a new Server.
func NewServer(a *app.App) *Server {
	s := &Server{
		cfg:      a.Config(),
		app:      a,
		mux:      http.NewServeMux(),
		now:      time.Now,
		dayCache: make(map[string]dayCacheEntry),
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

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Blank credentials disable auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
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
			w.Header().Set("WWW-Authenticate", `Basic realm="schemapush", charset="UTF-8"`)
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

// StartServer serves the API on cfg.Listen until ctx is cancelled, then
// shuts down gracefully.
func StartServer(ctx context.Context, a *app.App) error {
	s := NewServer(a)
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/day", s.handleDay)
	s.mux.HandleFunc("POST /api/send", s.handleSend)
	s.mux.HandleFunc("GET /api/last", s.handleLast)
	s.mux.HandleFunc("GET /api/export.ics", s.handleExport)
	s.mux.HandleFunc("GET /api/calendars", s.handleCalendars)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventDTO is a JSON-friendly view of an event.
type eventDTO struct {
	Begin       time.Time `json:"begin"`
	End         time.Time `json:"end"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
}

// dayResponse is the JSON response shape for /api/day and /api/send.
type dayResponse struct {
	Calendar string     `json:"calendar"`
	Day      string     `json:"day"`
	Events   []eventDTO `json:"events"`
	Lines    []string   `json:"lines"`
	Message  string     `json:"message,omitempty"`
	Sent     bool       `json:"sent,omitempty"`
}

// lastResponse is the JSON response shape for /api/last.
type lastResponse struct {
	Calendar string     `json:"calendar"`
	Events   []eventDTO `json:"events"`
	Lines    []string   `json:"lines"`
}

type calendarDTO struct {
	Name   string `json:"name"`
	Device string `json:"device"`
}

func toDTOs(events []model.Event) []eventDTO {
	dtos := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, eventDTO{
			Begin:       ev.Begin,
			End:         ev.End,
			Summary:     ev.Summary,
			Description: ev.Description,
			Location:    ev.Location,
		})
	}
	return dtos
}

func newDayResponse(ag app.Agenda) dayResponse {
	resp := dayResponse{
		Calendar: ag.Calendar,
		Day:      agenda.FormatDay(ag.Day),
		Events:   toDTOs(ag.Events),
		Lines:    ag.Lines,
	}
	if resp.Lines == nil {
		resp.Lines = []string{}
	}
	if ag.Empty() {
		resp.Message = ag.EmptyMessage()
	}
	return resp
}

// handleDay returns the agenda of a calendar for one day.
//
// GET /api/day?calendar=alice&day=tomorrow
//   - calendar: configured calendar name (required)
//   - day:      today (default), tomorrow or YYYY-MM-DD
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("calendar")
	if name == "" {
		writeError(w, http.StatusBadRequest, "calendar is required")
		return
	}
	// Resolve the selector once so a cached "today" expires at midnight
	// and the fetch below cannot land on a different date than the key.
	day := agenda.FormatDay(s.app.TargetDay(q.Get("day")))
	key := name + "|" + day

	s.dayMu.RLock()
	cached, ok := s.dayCache[key]
	s.dayMu.RUnlock()
	if ok && s.now().Sub(cached.updatedAt) < dayCacheTTL {
		writeJSON(w, http.StatusOK, cached.resp)
		return
	}

	ag, err := s.app.Day(r.Context(), name, day)
	if err != nil {
		s.writeAppError(w, "api day", err)
		return
	}
	resp := newDayResponse(ag)

	s.dayMu.Lock()
	s.dayCache[key] = dayCacheEntry{resp: resp, updatedAt: s.now()}
	s.dayMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleSend pushes a day agenda to the calendar's device.
//
// POST /api/send?calendar=alice&day=today
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("calendar")
	if name == "" {
		writeError(w, http.StatusBadRequest, "calendar is required")
		return
	}

	ag, err := s.app.Day(r.Context(), name, q.Get("day"))
	if err != nil {
		s.writeAppError(w, "api send", err)
		return
	}
	if err := s.app.Send(r.Context(), ag); err != nil {
		s.writeAppError(w, "api send", err)
		return
	}

	resp := newDayResponse(ag)
	resp.Sent = !ag.Empty()
	writeJSON(w, http.StatusOK, resp)
}

// handleLast returns the n latest events of a calendar.
//
// GET /api/last?calendar=alice&n=5
func (s *Server) handleLast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("calendar")
	if name == "" {
		writeError(w, http.StatusBadRequest, "calendar is required")
		return
	}
	n := parseIntDefault(q.Get("n"), s.cfg.LastCount)

	src, err := s.app.Source(name)
	if err != nil {
		s.writeAppError(w, "api last", err)
		return
	}
	ag, err := s.app.Last(r.Context(), src, n)
	if err != nil {
		s.writeAppError(w, "api last", err)
		return
	}

	lines := ag.Lines
	if lines == nil {
		lines = []string{}
	}
	writeJSON(w, http.StatusOK, lastResponse{
		Calendar: name,
		Events:   toDTOs(ag.Events),
		Lines:    lines,
	})
}

// handleExport serves a calendar's filtered events as an .ics document.
//
// GET /api/export.ics?calendar=alice
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("calendar")
	if name == "" {
		writeError(w, http.StatusBadRequest, "calendar is required")
		return
	}

	var buf bytes.Buffer
	if err := s.app.Export(r.Context(), &buf, name); err != nil {
		s.writeAppError(w, "api export", err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleCalendars lists the configured calendar names and devices. URLs are
// not exposed; they usually embed a private token.
func (s *Server) handleCalendars(w http.ResponseWriter, _ *http.Request) {
	out := make([]calendarDTO, 0, len(s.cfg.Calendars))
	for _, c := range s.cfg.Calendars {
		out = append(out, calendarDTO{Name: c.Name, Device: c.Device})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeAppError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, app.ErrUnknownCalendar) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	appLog.Error(op+" failed", err)
	writeError(w, http.StatusBadGateway, err.Error())
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
