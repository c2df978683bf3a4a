package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/ports"
)

// WorkerConfig holds the delivery loop settings.
type WorkerConfig struct {
	// BatchDelay is the interval between cycles.
	BatchDelay time.Duration

	// MaxBatchSize caps the messages assembled per cycle and per chunk.
	MaxBatchSize int

	// MaxFailedRetry caps the deferred buffer.
	MaxFailedRetry int

	// InterRequestDelay is the pause between two dispatches of one cycle.
	InterRequestDelay time.Duration

	// MaxRequests caps dispatches per cycle. Zero means unbounded.
	MaxRequests int

	// MaxPayloadLength is the provider's per-payload character limit.
	MaxPayloadLength int

	// SafeBatchLength bounds chunks of several messages, below
	// MaxPayloadLength. Zero packs to MaxPayloadLength.
	SafeBatchLength int
}

// StatsSink receives delivery events from the worker. Messages taken by
// Dispatching stay in flight until Sent, Failed or Deferred resolves them.
type StatsSink interface {
	Dispatching(fromDeferred, fromQueue int)
	Sent(n int)
	Deferred(n int)
	Failed(n int)
	Latency(d time.Duration)
	Request()
	RateLimited(scope domain.RateLimitScope)
	TransportError()
	Paused(until time.Time)
}

// TickReport summarizes one delivery cycle.
type TickReport struct {
	CycleID string

	// Paused is set when the cycle was skipped because a backoff deadline
	// had not yet passed.
	Paused bool

	Assembled    int
	FromDeferred int
	Chunks       int
	Dispatched   int
	Sent         int
	Abandoned    int
	Overflow     int

	// Deferred is the deferred buffer length at the end of the cycle.
	Deferred int

	// Last is the result of the final dispatch, if any.
	Last domain.SendResult
}

// Worker drains the ingestion queue on a fixed cadence and delivers chunks
// through the transport, backing off when the provider throttles.
type Worker struct {
	cfg       WorkerConfig
	queue     *IngestionQueue
	transport ports.Transport
	stats     StatsSink
	logger    ports.Logger
	clock     ports.Clock

	// mu serializes cycles. Everything below it is owned by the cycle.
	mu       sync.Mutex
	deferred *DeferredBuffer
	chunker  *Chunker
	limits   RateLimitState
	backoff  *backoff
	errUntil time.Time

	deferredLen atomic.Int64
}

// NewWorker creates a delivery worker.
func NewWorker(cfg WorkerConfig, queue *IngestionQueue, transport ports.Transport, stats StatsSink, logger ports.Logger, clock ports.Clock) *Worker {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Worker{
		cfg:       cfg,
		queue:     queue,
		transport: transport,
		stats:     stats,
		logger:    logger,
		clock:     clock,
		deferred:  NewDeferredBuffer(cfg.MaxFailedRetry),
		chunker:   NewChunker(cfg.SafeBatchLength, cfg.MaxPayloadLength, cfg.MaxBatchSize),
		backoff:   newBackoff(DefaultBackoffInitial, DefaultBackoffMax),
	}
}

// Run ticks every BatchDelay until ctx is canceled. A cycle in progress when
// ctx is canceled runs to completion.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.BatchDelay)
	defer ticker.Stop()

	w.logger.Info("delivery worker started",
		ports.Duration("batch_delay", w.cfg.BatchDelay),
		ports.Int("max_batch_size", w.cfg.MaxBatchSize),
		ports.Int("max_requests", w.cfg.MaxRequests),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("delivery worker stopped",
				ports.Int("queued", w.queue.Len()),
				ports.Int("deferred", w.DeferredLen()),
			)
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs exactly one delivery cycle.
func (w *Worker) Tick(ctx context.Context) TickReport {
	w.mu.Lock()
	defer w.mu.Unlock()
	defer w.publish()

	report := TickReport{CycleID: uuid.NewString()}

	if w.clock.Now().Before(w.deadline()) {
		report.Paused = true
		report.Deferred = w.deferred.Len()
		return report
	}

	batch := w.deferred.Take()
	report.FromDeferred = len(batch)
	if room := w.cfg.MaxBatchSize - len(batch); room > 0 {
		batch = append(batch, w.queue.Drain(room)...)
	}
	report.Assembled = len(batch)
	if len(batch) == 0 {
		return report
	}
	w.stats.Dispatching(report.FromDeferred, report.Assembled-report.FromDeferred)

	chunks := w.chunker.Split(batch)
	report.Chunks = len(chunks)

	sendCtx := context.WithoutCancel(ctx)
	next := 0

dispatch:
	for i, ch := range chunks {
		if w.cfg.MaxRequests > 0 && report.Dispatched >= w.cfg.MaxRequests {
			break
		}
		if i > 0 && w.cfg.InterRequestDelay > 0 {
			w.clock.Sleep(w.cfg.InterRequestDelay)
		}

		if ch.Truncated {
			w.logger.Warn("message exceeds payload limit, truncated",
				ports.String("cycle_id", report.CycleID),
				ports.Uint64("seq", ch.Messages[0].Seq),
				ports.Int("limit", w.cfg.MaxPayloadLength),
			)
		}

		w.stats.Request()
		res := w.transport.Send(sendCtx, []byte(ch.Text))
		report.Dispatched++
		report.Last = res

		switch res.Outcome {
		case domain.OutcomeSuccess:
			next = i + 1
			w.delivered(ch)
			report.Sent += len(ch.Messages)

		case domain.OutcomeRateLimited:
			w.stats.RateLimited(res.Scope)
			until := w.limits.Record(res.Scope, res.RetryAfter, w.clock.Now())
			w.logRateLimit(report.CycleID, res, until, len(chunks)-i)
			break dispatch

		case domain.OutcomeTransportError:
			if res.Permanent {
				next = i + 1
				w.stats.Failed(len(ch.Messages))
				report.Abandoned += len(ch.Messages)
				w.logger.Error("payload rejected, messages dropped",
					ports.String("cycle_id", report.CycleID),
					ports.Int("messages", len(ch.Messages)),
					ports.Err(res.Err),
				)
				break dispatch
			}

			w.stats.TransportError()
			delay := w.backoff.Next()
			w.errUntil = w.clock.Now().Add(delay)
			w.logger.Warn("delivery failed, backing off",
				ports.String("cycle_id", report.CycleID),
				ports.Duration("backoff", delay),
				ports.Err(res.Err),
			)
			break dispatch
		}
	}

	var rest []domain.Message
	for _, ch := range chunks[next:] {
		rest = append(rest, ch.Messages...)
	}
	if len(rest) > 0 {
		// The buffer was emptied by Take, so anything evicted comes from rest.
		dropped := w.deferred.Push(rest)
		w.stats.Deferred(len(rest) - len(dropped))
		if len(dropped) > 0 {
			w.stats.Failed(len(dropped))
			report.Overflow = len(dropped)
			w.logger.Warn("deferred buffer full, oldest messages dropped",
				ports.String("cycle_id", report.CycleID),
				ports.Int("dropped", len(dropped)),
				ports.Int("capacity", w.cfg.MaxFailedRetry),
			)
		}
	}
	report.Deferred = w.deferred.Len()

	if report.Dispatched > 0 {
		w.logger.Debug("cycle complete",
			ports.String("cycle_id", report.CycleID),
			ports.Int("assembled", report.Assembled),
			ports.Int("chunks", report.Chunks),
			ports.Int("dispatched", report.Dispatched),
			ports.Int("sent", report.Sent),
			ports.Int("deferred", report.Deferred),
		)
	}
	return report
}

// Flush runs up to maxTicks cycles, InterRequestDelay apart, stopping early
// once nothing is pending or a backoff deadline blocks delivery. It returns
// the number of messages sent.
func (w *Worker) Flush(ctx context.Context, maxTicks int) int {
	sent := 0
	for i := 0; i < maxTicks; i++ {
		if w.queue.Len() == 0 && w.DeferredLen() == 0 {
			break
		}
		if i > 0 && w.cfg.InterRequestDelay > 0 {
			w.clock.Sleep(w.cfg.InterRequestDelay)
		}
		r := w.Tick(ctx)
		sent += r.Sent
		if r.Paused || r.Dispatched == 0 || r.Last.Outcome != domain.OutcomeSuccess {
			break
		}
	}
	return sent
}

// DeferredLen returns the deferred buffer length as of the last cycle.
func (w *Worker) DeferredLen() int {
	return int(w.deferredLen.Load())
}

func (w *Worker) delivered(ch Chunk) {
	w.backoff.Reset()
	w.stats.Sent(len(ch.Messages))

	now := w.clock.Now()
	for _, m := range ch.Messages {
		if !m.ReceivedAt.IsZero() {
			w.stats.Latency(now.Sub(m.ReceivedAt))
		}
	}
}

// deadline is the later of the rate-limit and transport-error deadlines.
func (w *Worker) deadline() time.Time {
	until := w.limits.Until()
	if w.errUntil.After(until) {
		until = w.errUntil
	}
	return until
}

func (w *Worker) publish() {
	w.deferredLen.Store(int64(w.deferred.Len()))
	w.stats.Paused(w.deadline())
}

func (w *Worker) logRateLimit(cycleID string, res domain.SendResult, until time.Time, pending int) {
	fields := []ports.Field{
		ports.String("cycle_id", cycleID),
		ports.String("scope", string(res.Scope)),
		ports.Duration("retry_after", res.RetryAfter),
		ports.Time("paused_until", until),
		ports.Int("pending_chunks", pending),
		ports.Int("scope_total", w.limits.Count(res.Scope)),
	}

	// A global limit throttles every webhook of the application.
	if res.Scope == domain.ScopeGlobal {
		w.logger.Error("global rate limit hit", fields...)
		return
	}
	w.logger.Warn("rate limited", fields...)
}
