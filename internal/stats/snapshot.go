package stats

import "time"

// Snapshot is a point-in-time view of the relay, shaped for the /stats
// endpoint.
type Snapshot struct {
	Status        Health           `json:"status"`
	Uptime        string           `json:"uptime"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Queue         QueueStats       `json:"queue"`
	Messages      MessageStats     `json:"messages"`
	Performance   PerformanceStats `json:"performance"`
	RateLimit     RateLimitStats   `json:"rate_limit"`
	Config        *ConfigSummary   `json:"config,omitempty"`
}

// QueueStats describes queue pressure.
type QueueStats struct {
	Current  int        `json:"current"`
	Max      int        `json:"max"`
	Percent  float64    `json:"percent"`
	Peak     int        `json:"peak"`
	PeakTime *time.Time `json:"peak_time"`
	InFlight int        `json:"in_flight"`
	Deferred int        `json:"deferred"`
}

// RateLimitStats describes the current delivery pause, if any, and the most
// recent throttling rejection.
type RateLimitStats struct {
	Active          bool       `json:"active"`
	ResumeInSeconds float64    `json:"resume_in_seconds"`
	PausedUntil     *time.Time `json:"paused_until,omitempty"`
	LastScope       string     `json:"last_scope,omitempty"`
	LastAt          *time.Time `json:"last_at,omitempty"`
}

// MessageStats holds message counters and rolling rates.
type MessageStats struct {
	TotalReceived     uint64  `json:"total_received"`
	TotalSent         uint64  `json:"total_sent"`
	TotalDropped      uint64  `json:"total_dropped"`
	TotalFailed       uint64  `json:"total_failed"`
	TotalFiltered     uint64  `json:"total_filtered"`
	ReceivedPerMinute float64 `json:"received_per_minute"`
	SentPerMinute     float64 `json:"sent_per_minute"`
	PeakPerMinute     float64 `json:"peak_per_minute"`
}

// PerformanceStats holds provider request counters.
type PerformanceStats struct {
	TotalRequests     uint64  `json:"total_requests"`
	RequestsPerMinute float64 `json:"requests_per_minute"`
	RateLimits        uint64  `json:"rate_limits"`
	RateLimitsGlobal  uint64  `json:"rate_limits_global"`
	RateLimitsShared  uint64  `json:"rate_limits_shared"`
	RateLimitsUser    uint64  `json:"rate_limits_user"`
	TransportErrors   uint64  `json:"transport_errors"`
	AverageLatencyMs  float64 `json:"average_latency_ms"`
}

// ConfigSummary echoes the delivery settings alongside the metrics.
type ConfigSummary struct {
	BatchDelay          float64 `json:"batch_delay"`
	MaxBatchSize        int     `json:"max_batch_size"`
	InterRequestDelay   float64 `json:"inter_request_delay"`
	MaxDiscordRequests  int     `json:"max_discord_requests"`
	TheoreticalCapacity int     `json:"theoretical_capacity"`
}

// NewConfigSummary derives the summary. Theoretical capacity is the number of
// messages per minute the cadence allows when every batch is full.
func NewConfigSummary(batchDelay time.Duration, maxBatchSize int, interRequestDelay time.Duration, maxRequests int) *ConfigSummary {
	c := &ConfigSummary{
		BatchDelay:         batchDelay.Seconds(),
		MaxBatchSize:       maxBatchSize,
		InterRequestDelay:  interRequestDelay.Seconds(),
		MaxDiscordRequests: maxRequests,
	}
	if batchDelay > 0 {
		c.TheoreticalCapacity = int(time.Minute.Seconds() / batchDelay.Seconds() * float64(maxBatchSize))
	}
	return c
}

// Pending returns messages admitted but not yet resolved: queued, in a
// request right now, or parked for retry.
func (s Snapshot) Pending() int {
	return s.Queue.Current + s.Queue.InFlight + s.Queue.Deferred
}
