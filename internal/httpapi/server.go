package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/healthalert/internal/alert"
	"github.com/hamed0406/healthalert/internal/domain"
	apimw "github.com/hamed0406/healthalert/internal/httpapi/middleware"
)

// Monitor is the read side of an alert.
type Monitor interface {
	Status() alert.Status
	History() []domain.Snapshot
}

// Archive serves previously emitted events.
type Archive interface {
	Recent(ctx context.Context, eventName string, limit int) ([]domain.Event, error)
}

type Options struct {
	Keys           []string
	AllowedOrigins []string
	RatePerMinute  int
	RateBurst      int
}

type Server struct {
	Logger  *zap.Logger
	Metrics http.Handler // nil: /metrics not served
	Events  http.Handler // nil: /ws not served
	Archive Archive      // nil: /events answers 501

	order    []string
	monitors map[string]Monitor
}

func NewServer(l *zap.Logger, monitors []Monitor) *Server {
	s := &Server{Logger: l, monitors: make(map[string]Monitor, len(monitors))}
	for _, m := range monitors {
		name := m.Status().Name
		s.order = append(s.order, name)
		s.monitors[name] = m
	}
	return s
}

func (s *Server) Router(opts Options) http.Handler {
	r := chi.NewRouter()
	if len(opts.AllowedOrigins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "X-API-Key", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(opts.RatePerMinute, opts.RateBurst))
		r.Use(apimw.RequireKey(opts.Keys))

		if s.Events != nil {
			r.Method(http.MethodGet, "/ws", s.Events)
		}
		r.Get("/api/alerts", s.handleListAlerts)
		r.Get("/api/alerts/{name}", s.handleGetAlert)
		r.Get("/api/alerts/{name}/history", s.handleHistory)
		r.Get("/api/alerts/{name}/events", s.handleEvents)
	})

	return r
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	out := make([]alert.Status, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.monitors[name].Status())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (Monitor, bool) {
	m, ok := s.monitors[chi.URLParam(r, "name")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown alert"})
	}
	return m, ok
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	if m, ok := s.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, m.Status())
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if m, ok := s.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, m.History())
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if s.Archive == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "event archive not configured"})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be 1..500"})
			return
		}
		limit = n
	}

	events, err := s.Archive.Recent(r.Context(), m.Status().EventName, limit)
	if err != nil {
		s.Logger.Warn("archive_query_failed", zap.String("alert", m.Status().Name), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "archive error"})
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
