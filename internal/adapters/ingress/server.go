// Package ingress is the HTTP surface of the relay. The game server posts
// chat events to /message; operators read /stats, /stats/stream,
// /stats/history, /metrics and the status page.
package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/adapters/journal"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/ports"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/stats"
)

// Defaults.
const (
	DefaultStreamInterval = 5 * time.Second
	shutdownTimeout       = 5 * time.Second
	readHeaderTimeout     = 10 * time.Second

	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// Relay is what the ingress needs from the bridge.
type Relay interface {
	Submit(ev domain.RawEvent) domain.SubmitResult
	Snapshot() stats.Snapshot
}

// History reads journaled stats reports, newest first.
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Config configures the HTTP server.
type Config struct {
	Addr string

	// StreamInterval is the push period of /stats/stream.
	StreamInterval time.Duration

	// Metrics, if set, is served on /metrics.
	Metrics http.Handler

	// History, if set, is served on /stats/history.
	History History
}

// Server serves the relay endpoints.
type Server struct {
	relay    Relay
	cfg      Config
	logger   ports.Logger
	now      func() time.Time
	upgrader websocket.Upgrader
	handler  http.Handler

	closing   chan struct{}
	closeOnce sync.Once
	streams   sync.WaitGroup
}

// NewServer creates a server. Call ListenAndServe to start it, or mount
// Handler in an existing server.
func NewServer(relay Relay, cfg Config, logger ports.Logger) *Server {
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = DefaultStreamInterval
	}
	s := &Server{
		relay:   relay,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		closing: make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/message", s.handleMessage)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/stats/stream", s.handleStream)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/", s.handleStatusPage)
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}
	if cfg.History != nil {
		mux.HandleFunc("/stats/history", s.handleHistory)
	}
	s.handler = s.recoverMiddleware(mux)

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", ports.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.streams.Wait()
	if err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

// close ends live stat streams; hijacked connections are not covered by
// http.Server.Shutdown.
func (s *Server) close() {
	s.closeOnce.Do(func() { close(s.closing) })
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("panic in handler",
					ports.String("path", r.URL.Path),
					ports.Any("panic", rec),
				)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// handleMessage admits one chat event. Parameters come from the query string
// or a form body: message, sender, character, radius, location, channel.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	receivedAt := s.now()

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	ev := domain.RawEvent{
		Text:       r.FormValue("message"),
		Sender:     r.FormValue("sender"),
		Character:  r.FormValue("character"),
		Kind:       r.FormValue("radius"),
		Location:   r.FormValue("location"),
		Channel:    r.FormValue("channel"),
		ReceivedAt: receivedAt,
	}

	res := s.relay.Submit(ev)
	s.logger.Debug("chat event",
		ports.String("result", res.String()),
		ports.String("radius", ev.Kind),
		ports.String("sender", ev.Sender),
		ports.String("channel", ev.Channel),
		ports.String("message", preview(ev.Text, 80)),
	)

	switch res {
	case domain.SubmitAccepted, domain.SubmitIgnored:
		writeJSON(w, http.StatusOK, map[string]string{"status": res.String()})
	case domain.SubmitFull:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": res.String()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.relay.Snapshot())
}

// handleHistory lists journaled reports. ?limit= caps the rows returned.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := s.cfg.History.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("read stats history", ports.Err(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(empty)"
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
