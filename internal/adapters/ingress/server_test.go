package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/adapters/journal"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/ports"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/stats"
)

type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

type fakeRelay struct {
	mu     sync.Mutex
	result domain.SubmitResult
	events []domain.RawEvent
	panics bool
	snap   stats.Snapshot
}

func (f *fakeRelay) Submit(ev domain.RawEvent) domain.SubmitResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("boom")
	}
	f.events = append(f.events, ev)
	return f.result
}

func (f *fakeRelay) Snapshot() stats.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHandleMessage(t *testing.T) {
	tests := []struct {
		name       string
		result     domain.SubmitResult
		wantStatus int
		wantBody   string
	}{
		{"accepted", domain.SubmitAccepted, http.StatusOK, "ok"},
		{"ignored", domain.SubmitIgnored, http.StatusOK, "ignored"},
		{"full", domain.SubmitFull, http.StatusServiceUnavailable, "queue_full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := &fakeRelay{result: tt.result}
			s := NewServer(relay, Config{}, mockLogger{})

			q := url.Values{
				"message":   {"hello there"},
				"sender":    {"Bob"},
				"character": {"Conan"},
				"radius":    {"shout"},
				"location":  {"Sepermeru"},
				"channel":   {"Global"},
			}
			req := httptest.NewRequest(http.MethodGet, "/message?"+q.Encode(), nil)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decode(t, rec)["status"]; got != tt.wantBody {
				t.Errorf("body status = %v, want %s", got, tt.wantBody)
			}

			ev := relay.events[0]
			if ev.Text != "hello there" || ev.Sender != "Bob" || ev.Character != "Conan" ||
				ev.Kind != "shout" || ev.Location != "Sepermeru" || ev.Channel != "Global" {
				t.Errorf("event = %+v", ev)
			}
			if ev.ReceivedAt.IsZero() {
				t.Error("ReceivedAt not captured")
			}
		})
	}
}

func TestHandleMessage_PostForm(t *testing.T) {
	relay := &fakeRelay{}
	s := NewServer(relay, Config{}, mockLogger{})

	form := url.Values{"message": {"from a form"}, "sender": {"Ann"}}
	req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || relay.events[0].Text != "from a form" {
		t.Errorf("status %d, events %+v", rec.Code, relay.events)
	}
}

func TestHandleMessage_MethodNotAllowed(t *testing.T) {
	s := NewServer(&fakeRelay{}, Config{}, mockLogger{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/message", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleMessage_PanicIsInternalError(t *testing.T) {
	s := NewServer(&fakeRelay{panics: true}, Config{}, mockLogger{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/message?message=x", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := decode(t, rec)["error"]; got != "Internal server error" {
		t.Errorf("error = %v", got)
	}
}

func TestHandleStats(t *testing.T) {
	relay := &fakeRelay{snap: stats.Snapshot{
		Status: stats.HealthWarning,
		Queue:  stats.QueueStats{Current: 300, Max: 500},
		Config: stats.NewConfigSummary(2500*time.Millisecond, 20, 500*time.Millisecond, 1),
	}}
	s := NewServer(relay, Config{}, mockLogger{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("status %d, content type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	body := decode(t, rec)
	if body["status"] != "WARNING" {
		t.Errorf("status = %v", body["status"])
	}
	cfg, _ := body["config"].(map[string]any)
	if cfg["theoretical_capacity"] != float64(480) {
		t.Errorf("config = %v", cfg)
	}
}

func TestStatusPage(t *testing.T) {
	relay := &fakeRelay{snap: stats.Snapshot{
		Status:      stats.HealthCritical,
		Uptime:      "1h 2m 3s",
		Messages:    stats.MessageStats{TotalDropped: 7},
		Performance: stats.PerformanceStats{RateLimitsGlobal: 2},
	}}
	s := NewServer(relay, Config{}, mockLogger{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	for _, want := range []string{"CRITICAL", "#f04747", "1h 2m 3s", "7 message(s) lost", "2 global rate limit(s)"} {
		if !strings.Contains(body, want) {
			t.Errorf("status page missing %q", want)
		}
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", rec.Code)
	}
}

func TestStatusPage_Paused(t *testing.T) {
	relay := &fakeRelay{snap: stats.Snapshot{
		Status:    stats.HealthRateLimited,
		Queue:     stats.QueueStats{Deferred: 12},
		RateLimit: stats.RateLimitStats{Active: true, ResumeInSeconds: 3.5, LastScope: "shared"},
	}}
	s := NewServer(relay, Config{}, mockLogger{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	for _, want := range []string{"PAUSED", "resumes in 3.5s", "(last rate limit: shared)", "Awaiting retry:</strong> 12"} {
		if !strings.Contains(body, want) {
			t.Errorf("status page missing %q", want)
		}
	}

	relay.snap.RateLimit = stats.RateLimitStats{LastScope: "shared"}
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if strings.Contains(rec.Body.String(), "PAUSED") {
		t.Error("pause banner shown after the deadline")
	}
}

type fakeHistory struct {
	entries []journal.Entry
	err     error
	limits  []int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func TestHandleHistory(t *testing.T) {
	entries := []journal.Entry{
		{At: time.Unix(1700000300, 0), Status: stats.HealthOK, Received: 30, Sent: 28},
		{At: time.Unix(1700000000, 0), Status: stats.HealthOK, Received: 10, Sent: 10},
	}

	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
		wantLimit  int
		wantRows   int
	}{
		{"default limit", "", nil, http.StatusOK, defaultHistoryLimit, 2},
		{"explicit limit", "?limit=1", nil, http.StatusOK, 1, 1},
		{"limit capped", "?limit=999999", nil, http.StatusOK, maxHistoryLimit, 2},
		{"invalid limit", "?limit=abc", nil, http.StatusBadRequest, 0, 0},
		{"zero limit", "?limit=0", nil, http.StatusBadRequest, 0, 0},
		{"journal error", "", errors.New("database is locked"), http.StatusInternalServerError, defaultHistoryLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHistory{entries: entries, err: tt.err}
			s := NewServer(&fakeRelay{}, Config{History: h}, mockLogger{})

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats/history"+tt.query, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantLimit == 0 {
				if len(h.limits) != 0 {
					t.Errorf("journal queried for a rejected request")
				}
				return
			}
			if len(h.limits) != 1 || h.limits[0] != tt.wantLimit {
				t.Errorf("journal limits = %v, want [%d]", h.limits, tt.wantLimit)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			body := decode(t, rec)
			rows, _ := body["entries"].([]any)
			if len(rows) != tt.wantRows {
				t.Fatalf("entries = %d, want %d", len(rows), tt.wantRows)
			}
			first, _ := rows[0].(map[string]any)
			if first["received"] != float64(30) || first["status"] != "OK" {
				t.Errorf("first entry = %v", first)
			}
		})
	}
}

func TestHandleHistory_NotConfigured(t *testing.T) {
	s := NewServer(&fakeRelay{}, Config{}, mockLogger{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats/history", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a journal", rec.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("totbridge_up 1\n"))
	})
	s := NewServer(&fakeRelay{}, Config{Metrics: metrics}, mockLogger{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("/healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "totbridge_up 1") {
		t.Errorf("/metrics = %q", rec.Body.String())
	}
}

func TestStatsStream(t *testing.T) {
	relay := &fakeRelay{snap: stats.Snapshot{Status: stats.HealthOK, Uptime: "5s"}}
	s := NewServer(relay, Config{StreamInterval: 20 * time.Millisecond}, mockLogger{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/stats/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() = %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var snap stats.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("ReadJSON() #%d = %v", i, err)
		}
		if snap.Status != stats.HealthOK || snap.Uptime != "5s" {
			t.Errorf("snapshot #%d = %+v", i, snap)
		}
	}
}

func TestServe_ShutdownClosesStreams(t *testing.T) {
	relay := &fakeRelay{snap: stats.Snapshot{Status: stats.HealthOK}}
	s := NewServer(relay, Config{StreamInterval: time.Hour}, mockLogger{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/stats/stream", nil)
	if err != nil {
		t.Fatalf("Dial() = %v", err)
	}
	defer conn.Close()

	var snap stats.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("initial snapshot: %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage() = %v, want going-away close", err)
	}
}
