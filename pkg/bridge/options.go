package bridge

import (
	"context"
	"time"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/ports"
)

// Logger is the structured logger used by the bridge.
type Logger = ports.Logger

// Clock abstracts time for tests.
type Clock = ports.Clock

// Journal persists periodic stats snapshots.
type Journal interface {
	Append(ctx context.Context, at time.Time, snap Snapshot) error
	// Prune deletes entries older than the journal's retention and returns
	// the number removed.
	Prune(ctx context.Context, now time.Time) (int64, error)
}

// EventHandler receives lifecycle notifications.
type EventHandler interface {
	OnStateChange(previous, current State, reason string)
}

// Option configures optional behavior of a Bridge.
type Option func(*options)

type options struct {
	logger  ports.Logger
	clock   ports.Clock
	journal Journal
	handler EventHandler
}

func defaultOptions() options {
	return options{
		logger: noopLogger{},
		clock:  ports.SystemClock{},
	}
}

// WithLogger sets the logger. If not provided, nothing is logged.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock sets the time source used for timestamps, pacing and backoff.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithJournal records every stats report in j.
func WithJournal(j Journal) Option {
	return func(o *options) {
		o.journal = j
	}
}

// WithEventHandler sets a handler for lifecycle state changes.
// It is called synchronously from the goroutine changing state.
func WithEventHandler(h EventHandler) Option {
	return func(o *options) {
		o.handler = h
	}
}

type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...ports.Field) {}
func (noopLogger) Info(msg string, fields ...ports.Field)  {}
func (noopLogger) Warn(msg string, fields ...ports.Field)  {}
func (noopLogger) Error(msg string, fields ...ports.Field) {}
