package stats

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"
)

const (
	slotWidth    = 10 * time.Second
	historySlots = 30
	latencyRing  = 100
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures Stats.
type Option func(*Stats)

// WithClock sets the time source, for tests.
func WithClock(c Clock) Option {
	return func(s *Stats) { s.clock = c }
}

// Stats is the relay's event sink.
type Stats struct {
	mu       sync.Mutex
	clock    Clock
	start    time.Time
	maxQueue int

	received        uint64
	sent            uint64
	dropped         uint64
	failed          uint64
	filtered        uint64
	requests        uint64
	transportErrors uint64
	rateLimits      map[domain.RateLimitScope]uint64

	// Where admitted, unresolved messages currently sit. Each event moves
	// messages between locations under mu, so a snapshot always balances.
	queued   int
	inFlight int
	deferred int

	pausedUntil   time.Time
	lastRateLimit domain.RateLimitScope
	lastLimitedAt time.Time

	peakQueue     int
	peakQueueAt   time.Time
	peakPerMinute float64

	// Rolling window of 10s slots; history holds completed slots, oldest first.
	slot         int64
	slotReceived uint64
	slotSent     uint64
	histReceived []uint64
	histSent     []uint64

	latencies []time.Duration
	latNext   int
}

// New creates Stats for a queue of capacity maxQueue.
func New(maxQueue int, opts ...Option) *Stats {
	s := &Stats{
		clock:      systemClock{},
		maxQueue:   maxQueue,
		rateLimits: make(map[domain.RateLimitScope]uint64, 3),
		latencies:  make([]time.Duration, 0, latencyRing),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.start = s.clock.Now()
	s.slot = slotOf(s.start)
	return s
}

// Received records a message admitted to the queue. The queue calls it under
// its own lock, so the message is counted before any cycle can drain it.
func (s *Stats) Received() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotate()
	s.received++
	s.slotReceived++
	s.queued++
	if s.queued > s.peakQueue {
		s.peakQueue = s.queued
		s.peakQueueAt = s.clock.Now()
	}
}

// RejectedFull records a message refused because the queue was full. The
// message was offered, so it counts as both received and dropped.
func (s *Stats) RejectedFull() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotate()
	s.received++
	s.slotReceived++
	s.dropped++
}

// Filtered records an event ignored by the channel filter or for empty text.
func (s *Stats) Filtered() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filtered++
}

// Dispatching records a cycle taking fromDeferred messages out of the
// deferred buffer and fromQueue out of the queue. They stay in flight until
// Sent, Failed or Deferred resolves them.
func (s *Stats) Dispatching(fromDeferred, fromQueue int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deferred -= fromDeferred
	s.queued -= fromQueue
	s.inFlight += fromDeferred + fromQueue
}

// Deferred records n in-flight messages parked for a later cycle.
func (s *Stats) Deferred(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight -= n
	s.deferred += n
}

// Sent records n delivered messages.
func (s *Stats) Sent(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotate()
	s.inFlight -= n
	s.sent += uint64(n)
	s.slotSent += uint64(n)
}

// Latency records the receipt-to-delivery time of one message.
func (s *Stats) Latency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.latencies) < latencyRing {
		s.latencies = append(s.latencies, d)
		return
	}
	s.latencies[s.latNext] = d
	s.latNext = (s.latNext + 1) % latencyRing
}

// Failed records n in-flight messages abandoned after admission.
func (s *Stats) Failed(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight -= n
	s.failed += uint64(n)
}

// Request records one provider request.
func (s *Stats) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
}

// RateLimited records one throttling rejection.
func (s *Stats) RateLimited(scope domain.RateLimitScope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimits[scope]++
	s.lastRateLimit = scope
	s.lastLimitedAt = s.clock.Now()
}

// Paused records the deadline before which no request is sent.
func (s *Stats) Paused(until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedUntil = until
}

// TransportError records one retryable delivery failure.
func (s *Stats) TransportError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transportErrors++
}

// Snapshot returns a consistent view of every metric.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.rotate()

	recvPerMin, sentPerMin := s.perMinute()
	if recvPerMin > s.peakPerMinute {
		s.peakPerMinute = recvPerMin
	}

	uptime := now.Sub(s.start)
	var reqPerMin float64
	if secs := uptime.Seconds(); secs > 0 {
		reqPerMin = float64(s.requests) / secs * 60
	}

	var percent float64
	if s.maxQueue > 0 {
		percent = float64(s.queued) / float64(s.maxQueue) * 100
	}

	var peakAt *time.Time
	if !s.peakQueueAt.IsZero() {
		t := s.peakQueueAt
		peakAt = &t
	}

	var limit RateLimitStats
	if now.Before(s.pausedUntil) {
		t := s.pausedUntil
		limit.Active = true
		limit.PausedUntil = &t
		limit.ResumeInSeconds = round1(s.pausedUntil.Sub(now).Seconds())
	}
	if !s.lastLimitedAt.IsZero() {
		t := s.lastLimitedAt
		limit.LastScope = string(s.lastRateLimit)
		limit.LastAt = &t
	}

	totalRL := s.rateLimits[domain.ScopeGlobal] + s.rateLimits[domain.ScopeShared] + s.rateLimits[domain.ScopeUser]

	return Snapshot{
		Status:        evaluateHealth(s.queued, s.maxQueue, totalRL, s.sent),
		Uptime:        formatUptime(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		Queue: QueueStats{
			Current:  s.queued,
			Max:      s.maxQueue,
			Percent:  round1(percent),
			Peak:     s.peakQueue,
			PeakTime: peakAt,
			InFlight: s.inFlight,
			Deferred: s.deferred,
		},
		RateLimit: limit,
		Messages: MessageStats{
			TotalReceived:     s.received,
			TotalSent:         s.sent,
			TotalDropped:      s.dropped,
			TotalFailed:       s.failed,
			TotalFiltered:     s.filtered,
			ReceivedPerMinute: round1(recvPerMin),
			SentPerMinute:     round1(sentPerMin),
			PeakPerMinute:     round1(s.peakPerMinute),
		},
		Performance: PerformanceStats{
			TotalRequests:     s.requests,
			RequestsPerMinute: round1(reqPerMin),
			RateLimits:        totalRL,
			RateLimitsGlobal:  s.rateLimits[domain.ScopeGlobal],
			RateLimitsShared:  s.rateLimits[domain.ScopeShared],
			RateLimitsUser:    s.rateLimits[domain.ScopeUser],
			TransportErrors:   s.transportErrors,
			AverageLatencyMs:  round1(s.averageLatency().Seconds() * 1000),
		},
	}
}

// rotate archives finished slots. Slots skipped entirely are archived as zero.
// Callers hold s.mu.
func (s *Stats) rotate() {
	current := slotOf(s.clock.Now())
	if current <= s.slot {
		return
	}

	gap := current - s.slot
	s.push(s.slotReceived, s.slotSent)
	for i := int64(1); i < gap && i <= historySlots; i++ {
		s.push(0, 0)
	}
	s.slot = current
	s.slotReceived, s.slotSent = 0, 0
}

func (s *Stats) push(received, sent uint64) {
	s.histReceived = append(s.histReceived, received)
	s.histSent = append(s.histSent, sent)
	if len(s.histReceived) > historySlots {
		s.histReceived = s.histReceived[1:]
		s.histSent = s.histSent[1:]
	}
}

// perMinute averages the history plus the current slot. Callers hold s.mu.
func (s *Stats) perMinute() (received, sent float64) {
	recvSum, sentSum := s.slotReceived, s.slotSent
	for i := range s.histReceived {
		recvSum += s.histReceived[i]
		sentSum += s.histSent[i]
	}

	minutes := float64(len(s.histReceived)+1) * slotWidth.Minutes()
	return float64(recvSum) / minutes, float64(sentSum) / minutes
}

func (s *Stats) averageLatency() time.Duration {
	if len(s.latencies) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range s.latencies {
		sum += d
	}
	return sum / time.Duration(len(s.latencies))
}

func slotOf(t time.Time) int64 {
	return t.Unix() / int64(slotWidth/time.Second)
}

func formatUptime(d time.Duration) string {
	total := int64(d.Seconds())
	h, rem := total/3600, total%3600
	m, sec := rem/60, rem%60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, sec)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
