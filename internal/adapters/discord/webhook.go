// Package discord delivers chat payloads to a Discord webhook and classifies
// the responses into domain.SendResult values.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/ports"
)

// DefaultRetryAfter is used when a 429 carries no usable wait hint.
const DefaultRetryAfter = 2 * time.Second

// maxErrorBody bounds how much of an error response is kept for logs.
const maxErrorBody = 512

// Config configures the webhook transport.
type Config struct {
	WebhookURL string
	Username   string
	AvatarURL  string

	// BurstRequests requests are allowed per BurstWindow before the
	// transport starts pacing itself. Zero disables pacing.
	BurstRequests int
	BurstWindow   time.Duration
}

// Webhook implements ports.Transport over the Discord webhook API.
type Webhook struct {
	cfg     Config
	client  ports.HTTPClient
	limiter *rate.Limiter
	logger  ports.Logger
}

// NewWebhook creates a webhook transport.
func NewWebhook(cfg Config, client ports.HTTPClient, logger ports.Logger) *Webhook {
	w := &Webhook{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
	if cfg.BurstRequests > 0 && cfg.BurstWindow > 0 {
		every := cfg.BurstWindow / time.Duration(cfg.BurstRequests)
		w.limiter = rate.NewLimiter(rate.Every(every), cfg.BurstRequests)
	}
	return w
}

type allowedMentions struct {
	Parse []string `json:"parse"`
}

type executePayload struct {
	Content         string          `json:"content"`
	Username        string          `json:"username,omitempty"`
	AvatarURL       string          `json:"avatar_url,omitempty"`
	AllowedMentions allowedMentions `json:"allowed_mentions"`
}

type rateLimitBody struct {
	Message    string   `json:"message"`
	RetryAfter *float64 `json:"retry_after"`
	Global     bool     `json:"global"`
}

// Send posts one payload. It never retries; throttling and failures are
// reported through the returned SendResult.
func (w *Webhook) Send(ctx context.Context, payload []byte) domain.SendResult {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return domain.TransportError(fmt.Errorf("pace request: %w", err), false)
		}
	}

	body, err := json.Marshal(executePayload{
		Content:         string(payload),
		Username:        w.cfg.Username,
		AvatarURL:       w.cfg.AvatarURL,
		AllowedMentions: allowedMentions{Parse: []string{}},
	})
	if err != nil {
		return domain.TransportError(fmt.Errorf("marshal payload: %w", err), true)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return domain.TransportError(fmt.Errorf("create request: %w", err), true)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return domain.TransportError(fmt.Errorf("send request: %w", err), false)
	}
	defer resp.Body.Close()

	return w.classify(resp)
}

func (w *Webhook) classify(resp *http.Response) domain.SendResult {
	switch {
	case resp.StatusCode/100 == 2:
		_, _ = io.Copy(io.Discard, resp.Body)
		return domain.Success()

	case resp.StatusCode == http.StatusTooManyRequests:
		return classifyRateLimit(resp)

	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized:
		w.logger.Error("webhook invalid or deleted, check the webhook URL",
			ports.Int("status", resp.StatusCode),
			ports.String("webhook", MaskWebhookURL(w.cfg.WebhookURL)),
		)
		return domain.TransportError(statusError(resp), true)

	case resp.StatusCode >= 500:
		return domain.TransportError(statusError(resp), false)

	default:
		return domain.TransportError(statusError(resp), true)
	}
}

// classifyRateLimit reads the scope and wait hint from a 429 response. The
// JSON body wins over headers; unknown scopes are treated as user scope.
func classifyRateLimit(resp *http.Response) domain.SendResult {
	var body rateLimitBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &body)

	scope := domain.ParseScope(strings.ToLower(resp.Header.Get("X-RateLimit-Scope")))
	if body.Global || strings.EqualFold(resp.Header.Get("X-RateLimit-Global"), "true") {
		scope = domain.ScopeGlobal
	}

	retryAfter := DefaultRetryAfter
	switch {
	case body.RetryAfter != nil && *body.RetryAfter >= 0:
		retryAfter = seconds(*body.RetryAfter)
	default:
		if d, ok := headerSeconds(resp.Header, "Retry-After"); ok {
			retryAfter = d
		} else if d, ok := headerSeconds(resp.Header, "X-RateLimit-Reset-After"); ok {
			retryAfter = d
		}
	}

	return domain.RateLimited(scope, retryAfter)
}

func headerSeconds(h http.Header, key string) (time.Duration, bool) {
	v := h.Get(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return seconds(f), true
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// StatusError is returned for non-2xx responses other than 429.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("discord returned %d", e.Code)
	}
	return fmt.Sprintf("discord returned %d: %s", e.Code, e.Body)
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// MaskWebhookURL hides the webhook token so the URL can be logged.
func MaskWebhookURL(u string) string {
	i := strings.LastIndexByte(u, '/')
	if i < 0 || i == len(u)-1 {
		return u
	}
	return u[:i+1] + "****"
}
