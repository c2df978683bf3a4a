package bridge

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/app"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/ports"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/stats"
)

// Event is a raw chat event from the game server.
type Event = domain.RawEvent

// SubmitResult is the outcome of Submit.
type SubmitResult = domain.SubmitResult

const (
	SubmitAccepted = domain.SubmitAccepted
	SubmitIgnored  = domain.SubmitIgnored
	SubmitFull     = domain.SubmitFull
)

// Snapshot is a point-in-time view of the relay metrics.
type Snapshot = stats.Snapshot

// Transport delivers one payload downstream.
type Transport = ports.Transport

// State is the lifecycle state of a Bridge.
type State = app.State

const (
	StateStopped  = app.StateStopped
	StateStarting = app.StateStarting
	StateRunning  = app.StateRunning
	StateStopping = app.StateStopping
	StateCrashed  = app.StateCrashed
)

// view is the hot-reloadable part of the configuration.
type view struct {
	formatter *app.Formatter
	filter    *app.ChannelFilter
}

// Bridge relays chat events. Use New to create one and Start to begin delivery.
type Bridge struct {
	cfg       Config
	logger    ports.Logger
	clock     ports.Clock
	lifecycle *app.Lifecycle
	queue     *app.IngestionQueue
	worker    *app.Worker
	stats     *stats.Stats
	reporter  *reporter
	summary   *stats.ConfigSummary

	view atomic.Pointer[view]

	mu sync.Mutex
}

// New creates a Bridge in StateStopped. Events submitted before Start are
// queued and delivered once the worker runs.
func New(cfg Config, transport Transport, opts ...Option) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	var emitter app.EventEmitter
	if o.handler != nil {
		emitter = o.handler
	}

	st := stats.New(cfg.QueueSize, stats.WithClock(o.clock))
	queue := app.NewIngestionQueue(cfg.QueueSize, app.WithAdmitHook(st.Received))

	b := &Bridge{
		cfg:       cfg,
		logger:    o.logger,
		clock:     o.clock,
		lifecycle: app.NewLifecycle(o.logger, emitter),
		queue:     queue,
		stats:     st,
		worker:    app.NewWorker(cfg.workerConfig(), queue, transport, st, o.logger, o.clock),
		summary:   stats.NewConfigSummary(cfg.BatchDelay, cfg.MaxBatchSize, cfg.InterRequestDelay, cfg.MaxRequests),
	}
	b.reporter = newReporter(b, cfg.StatsInterval, o.journal, o.logger)
	b.ApplyDisplay(cfg.Display, cfg.AllowedChannels)

	return b, nil
}

// Start begins delivery in the background. The context bounds the lifetime
// of the delivery loop.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.lifecycle.SetCancel(cancel)

	b.reporter.start()

	b.lifecycle.Go(func() {
		if err := b.lifecycle.TransitionTo(app.StateRunning, "worker starting"); err != nil {
			b.logger.Error("failed to transition to running", ports.Err(err))
			return
		}
		b.worker.Run(runCtx)
	})

	return nil
}

// Stop cancels the delivery loop and waits for the cycle in progress. With
// DrainOnStop set, a few extra cycles flush what the provider allows.
// Returns ErrShutdownTimeout if the worker does not stop in time.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	if !b.lifecycle.CanStop() {
		b.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := b.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		b.mu.Unlock()
		return err
	}
	b.lifecycle.Cancel()
	b.mu.Unlock()

	err := b.lifecycle.WaitWithTimeout(app.ShutdownTimeout)

	if err == nil && b.cfg.DrainOnStop && b.cfg.DrainTicks > 0 {
		sent := b.worker.Flush(context.Background(), b.cfg.DrainTicks)
		b.logger.Info("drained pending messages",
			ports.Int("sent", sent),
			ports.Int("queued", b.queue.Len()),
			ports.Int("deferred", b.worker.DeferredLen()),
		)
	}

	b.reporter.stop()

	if err != nil {
		_ = b.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = b.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Status returns the current lifecycle state.
func (b *Bridge) Status() State {
	return b.lifecycle.State()
}

// Submit offers an event for relay. It never blocks on delivery.
func (b *Bridge) Submit(ev Event) SubmitResult {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = b.clock.Now()
	}

	v := b.view.Load()
	if !v.filter.Allow(ev.Channel) {
		b.stats.Filtered()
		return SubmitIgnored
	}

	text, ok := v.formatter.Format(ev)
	if !ok {
		b.stats.Filtered()
		return SubmitIgnored
	}

	if _, err := b.queue.Enqueue(ev, text); err != nil {
		b.stats.RejectedFull()
		b.logger.Warn("queue full, message dropped",
			ports.Int("capacity", b.queue.Cap()),
			ports.String("channel", ev.Channel),
		)
		return SubmitFull
	}
	return SubmitAccepted
}

// Snapshot returns the current metrics, including the delivery settings.
func (b *Bridge) Snapshot() Snapshot {
	snap := b.stats.Snapshot()
	summary := *b.summary
	snap.Config = &summary
	return snap
}

// ApplyDisplay swaps the display settings and channel allow-list. Events
// already queued keep their formatting.
func (b *Bridge) ApplyDisplay(display DisplayConfig, allowedChannels []string) {
	b.view.Store(&view{
		formatter: app.NewFormatter(display),
		filter:    app.NewChannelFilter(allowedChannels),
	})
}

// Display returns the display settings and allow-list in use.
func (b *Bridge) Display() (DisplayConfig, []string) {
	v := b.view.Load()
	return v.formatter.Config(), v.filter.Channels()
}

// Config returns the configuration the bridge was created with.
func (b *Bridge) Config() Config {
	return b.cfg
}
