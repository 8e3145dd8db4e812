package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/healthalert/internal/alert"
	"github.com/hamed0406/healthalert/internal/domain"
)

// ---- test helpers ----

type fakeMonitor struct {
	status  alert.Status
	history []domain.Snapshot
}

func (f *fakeMonitor) Status() alert.Status       { return f.status }
func (f *fakeMonitor) History() []domain.Snapshot { return f.history }

type fakeArchive struct {
	gotName  string
	gotLimit int
	events   []domain.Event
	err      error
}

func (f *fakeArchive) Recent(_ context.Context, name string, limit int) ([]domain.Event, error) {
	f.gotName, f.gotLimit = name, limit
	return f.events, f.err
}

func setupServer(t *testing.T) (*Server, *fakeArchive) {
	t.Helper()
	web := &fakeMonitor{
		status: alert.Status{
			Name:      "web",
			EventName: "healthCheck.web",
			Targets:   4,
			Cycles:    2,
			LastEvent: &domain.Event{ID: "e2", Level: "critical"},
		},
		history: []domain.Snapshot{
			{ServerSetCounts: domain.CountTree{"team": {"category": {"OK": 4}}}, TakenAt: time.Unix(1, 0)},
			{ServerSetCounts: domain.CountTree{"team": {"category": {"OK": 3, "ERROR": 1}}}, TakenAt: time.Unix(2, 0)},
		},
	}
	db := &fakeMonitor{status: alert.Status{Name: "db", EventName: "healthCheck.db"}}

	srv := NewServer(zap.NewNop(), []Monitor{web, db})
	arch := &fakeArchive{events: []domain.Event{{ID: "e1"}}}
	srv.Archive = arch
	srv.Metrics = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# HELP healthalert_probes_total\n"))
	})
	return srv, arch
}

func get(t *testing.T, h http.Handler, path, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ---- tests ----

func TestRouter_ListAndGetAlerts(t *testing.T) {
	srv, _ := setupServer(t)
	h := srv.Router(Options{Keys: []string{"k"}})

	rec := get(t, h, "/api/alerts", "k")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	var list []alert.Status
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 2 || list[0].Name != "web" || list[1].Name != "db" {
		t.Fatalf("list must keep configured order: %+v", list)
	}

	rec = get(t, h, "/api/alerts/web", "k")
	var st alert.Status
	_ = json.NewDecoder(rec.Body).Decode(&st)
	if st.LastEvent == nil || st.LastEvent.Level != "critical" || st.Cycles != 2 {
		t.Fatalf("status = %+v", st)
	}

	if rec := get(t, h, "/api/alerts/nope", "k"); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown alert: %d", rec.Code)
	}
}

func TestRouter_History(t *testing.T) {
	srv, _ := setupServer(t)
	h := srv.Router(Options{})

	rec := get(t, h, "/api/alerts/web/history", "")
	var snaps []domain.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snaps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snaps) != 2 || snaps[1].ServerSetCounts["team"]["category"]["ERROR"] != 1 {
		t.Fatalf("history = %+v", snaps)
	}
}

func TestRouter_Events(t *testing.T) {
	srv, arch := setupServer(t)
	h := srv.Router(Options{})

	rec := get(t, h, "/api/alerts/web/events?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("events: %d", rec.Code)
	}
	if arch.gotName != "healthCheck.web" || arch.gotLimit != 5 {
		t.Fatalf("archive queried with %q/%d", arch.gotName, arch.gotLimit)
	}

	if rec := get(t, h, "/api/alerts/web/events?limit=0", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: %d", rec.Code)
	}

	arch.err = errors.New("connection reset")
	if rec := get(t, h, "/api/alerts/web/events", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("archive error: %d", rec.Code)
	}

	srv.Archive = nil
	if rec := get(t, srv.Router(Options{}), "/api/alerts/web/events", ""); rec.Code != http.StatusNotImplemented {
		t.Fatalf("no archive: %d", rec.Code)
	}
}

func TestRouter_AuthOnlyGuardsAPI(t *testing.T) {
	srv, _ := setupServer(t)
	h := srv.Router(Options{Keys: []string{"secret"}})

	if rec := get(t, h, "/api/alerts", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: %d", rec.Code)
	}
	if rec := get(t, h, "/healthz", ""); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
	if rec := get(t, h, "/metrics", ""); rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestRouter_RateLimited(t *testing.T) {
	srv, _ := setupServer(t)
	h := srv.Router(Options{RatePerMinute: 60, RateBurst: 1})

	if rec := get(t, h, "/api/alerts", ""); rec.Code != http.StatusOK {
		t.Fatalf("first: %d", rec.Code)
	}
	if rec := get(t, h, "/api/alerts", ""); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: %d", rec.Code)
	}
}

func TestRouter_CORS(t *testing.T) {
	srv, _ := setupServer(t)
	h := srv.Router(Options{AllowedOrigins: []string{"https://ops.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example.com" {
		t.Fatalf("allow-origin = %q", got)
	}
}
