package discord

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/ports"
)

type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// stubClient answers every request with a fixed response or error.
type stubClient struct {
	resp *http.Response
	err  error
}

func (s stubClient) Do(*http.Request) (*http.Response, error) {
	return s.resp, s.err
}

func response(status int, headers map[string]string, body string) *http.Response {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestWebhook_Send_Payload(t *testing.T) {
	var (
		mu  sync.Mutex
		got map[string]any
		ct  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		ct = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(Config{WebhookURL: srv.URL, Username: "CONAN_CHAT"}, srv.Client(), mockLogger{})
	res := w.Send(context.Background(), []byte("**Bob** [Say]: hi"))

	if res.Outcome != domain.OutcomeSuccess {
		t.Fatalf("Send() = %s, want success", res)
	}

	mu.Lock()
	defer mu.Unlock()
	if ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got["content"] != "**Bob** [Say]: hi" || got["username"] != "CONAN_CHAT" {
		t.Errorf("payload = %v", got)
	}
	if _, ok := got["avatar_url"]; ok {
		t.Error("empty avatar_url should be omitted")
	}
	am, _ := got["allowed_mentions"].(map[string]any)
	if parse, ok := am["parse"].([]any); !ok || len(parse) != 0 {
		t.Errorf("allowed_mentions = %v, want parse []", got["allowed_mentions"])
	}
}

func TestWebhook_Send_Classification(t *testing.T) {
	tests := []struct {
		name          string
		resp          *http.Response
		err           error
		wantOutcome   domain.Outcome
		wantScope     domain.RateLimitScope
		wantRetry     time.Duration
		wantPermanent bool
	}{
		{
			name:        "200",
			resp:        response(200, nil, `{"id":"1"}`),
			wantOutcome: domain.OutcomeSuccess,
		},
		{
			name:        "204",
			resp:        response(204, nil, ""),
			wantOutcome: domain.OutcomeSuccess,
		},
		{
			name:        "429 shared from header, retry from body",
			resp:        response(429, map[string]string{"X-RateLimit-Scope": "shared"}, `{"retry_after": 5.0, "global": false}`),
			wantOutcome: domain.OutcomeRateLimited,
			wantScope:   domain.ScopeShared,
			wantRetry:   5 * time.Second,
		},
		{
			name:        "429 global from body",
			resp:        response(429, nil, `{"retry_after": 0.75, "global": true}`),
			wantOutcome: domain.OutcomeRateLimited,
			wantScope:   domain.ScopeGlobal,
			wantRetry:   750 * time.Millisecond,
		},
		{
			name:        "429 global from header",
			resp:        response(429, map[string]string{"X-RateLimit-Global": "true", "Retry-After": "3"}, ""),
			wantOutcome: domain.OutcomeRateLimited,
			wantScope:   domain.ScopeGlobal,
			wantRetry:   3 * time.Second,
		},
		{
			name:        "429 reset-after header",
			resp:        response(429, map[string]string{"X-RateLimit-Reset-After": "1.5"}, "not json"),
			wantOutcome: domain.OutcomeRateLimited,
			wantScope:   domain.ScopeUser,
			wantRetry:   1500 * time.Millisecond,
		},
		{
			name:        "429 without hints",
			resp:        response(429, map[string]string{"X-RateLimit-Scope": "weird"}, ""),
			wantOutcome: domain.OutcomeRateLimited,
			wantScope:   domain.ScopeUser,
			wantRetry:   DefaultRetryAfter,
		},
		{
			name:          "404 webhook deleted",
			resp:          response(404, nil, `{"message":"Unknown Webhook"}`),
			wantOutcome:   domain.OutcomeTransportError,
			wantPermanent: true,
		},
		{
			name:          "401",
			resp:          response(401, nil, ""),
			wantOutcome:   domain.OutcomeTransportError,
			wantPermanent: true,
		},
		{
			name:          "400 bad payload",
			resp:          response(400, nil, `{"content":["Must be 2000 or fewer in length."]}`),
			wantOutcome:   domain.OutcomeTransportError,
			wantPermanent: true,
		},
		{
			name:        "502",
			resp:        response(502, nil, "bad gateway"),
			wantOutcome: domain.OutcomeTransportError,
		},
		{
			name:        "network error",
			err:         errors.New("connection refused"),
			wantOutcome: domain.OutcomeTransportError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWebhook(Config{WebhookURL: "http://discord.invalid/api/webhooks/1/tok"},
				stubClient{resp: tt.resp, err: tt.err}, mockLogger{})

			res := w.Send(context.Background(), []byte("x"))

			if res.Outcome != tt.wantOutcome {
				t.Fatalf("Outcome = %s, want %s (%s)", res.Outcome, tt.wantOutcome, res)
			}
			if res.Outcome == domain.OutcomeRateLimited {
				if res.Scope != tt.wantScope || res.RetryAfter != tt.wantRetry {
					t.Errorf("got %s/%v, want %s/%v", res.Scope, res.RetryAfter, tt.wantScope, tt.wantRetry)
				}
			}
			if res.Outcome == domain.OutcomeTransportError && res.Permanent != tt.wantPermanent {
				t.Errorf("Permanent = %v, want %v", res.Permanent, tt.wantPermanent)
			}
		})
	}
}

func TestWebhook_StatusError(t *testing.T) {
	w := NewWebhook(Config{WebhookURL: "http://discord.invalid/x"},
		stubClient{resp: response(400, nil, "  too long  ")}, mockLogger{})

	res := w.Send(context.Background(), []byte("x"))
	if !IsStatus(res.Err, 400) {
		t.Fatalf("Err = %v, want status 400", res.Err)
	}
	if res.Err.Error() != "discord returned 400: too long" {
		t.Errorf("Error() = %q", res.Err.Error())
	}
}

func TestWebhook_Pacing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(Config{WebhookURL: srv.URL, BurstRequests: 2, BurstWindow: 200 * time.Millisecond},
		srv.Client(), mockLogger{})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if res := w.Send(context.Background(), []byte("x")); res.Outcome != domain.OutcomeSuccess {
			t.Fatalf("Send() = %s", res)
		}
	}

	// Two requests pass in the burst; the third waits for a token.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("three requests took %v, want pacing of about 100ms", elapsed)
	}
}

func TestMaskWebhookURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://discord.com/api/webhooks/123/secret", "https://discord.com/api/webhooks/123/****"},
		{"no-slash", "no-slash"},
		{"https://host/", "https://host/"},
	}
	for _, tt := range tests {
		if got := MaskWebhookURL(tt.in); got != tt.want {
			t.Errorf("MaskWebhookURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
