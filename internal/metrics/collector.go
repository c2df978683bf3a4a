// Package metrics exposes relay stats to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/stats"
)

const namespace = "totbridge"

// Collector reads a fresh snapshot on every scrape.
type Collector struct {
	snapshot func() stats.Snapshot

	received        *prometheus.Desc
	sent            *prometheus.Desc
	dropped         *prometheus.Desc
	failed          *prometheus.Desc
	filtered        *prometheus.Desc
	requests        *prometheus.Desc
	rateLimits      *prometheus.Desc
	transportErrors *prometheus.Desc
	queueDepth      *prometheus.Desc
	queueCapacity   *prometheus.Desc
	queuePeak       *prometheus.Desc
	deferred        *prometheus.Desc
	inFlight        *prometheus.Desc
	pausedFor       *prometheus.Desc
	latency         *prometheus.Desc
	health          *prometheus.Desc
	uptime          *prometheus.Desc
}

// NewCollector creates a collector over snapshot.
func NewCollector(snapshot func() stats.Snapshot) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		snapshot:        snapshot,
		received:        desc("messages_received_total", "Chat events admitted or rejected for capacity."),
		sent:            desc("messages_sent_total", "Messages delivered downstream."),
		dropped:         desc("messages_dropped_total", "Messages rejected because the queue was full."),
		failed:          desc("messages_failed_total", "Admitted messages abandoned before delivery."),
		filtered:        desc("messages_filtered_total", "Events ignored by the channel filter or for empty text."),
		requests:        desc("requests_total", "Webhook requests issued."),
		rateLimits:      desc("rate_limits_total", "Throttling rejections by scope.", "scope"),
		transportErrors: desc("transport_errors_total", "Retryable delivery failures."),
		queueDepth:      desc("queue_depth", "Messages waiting in the ingestion queue."),
		queueCapacity:   desc("queue_capacity", "Ingestion queue capacity."),
		queuePeak:       desc("queue_peak", "Highest observed queue depth."),
		deferred:        desc("deferred_messages", "Messages awaiting retry."),
		inFlight:        desc("in_flight_messages", "Messages in the webhook request being sent."),
		pausedFor:       desc("delivery_paused_seconds", "Seconds until a rate-limit or error pause ends; 0 when delivering."),
		latency:         desc("average_latency_seconds", "Mean receipt-to-delivery latency over recent messages."),
		health:          desc("health", "1 for the current health verdict.", "status"),
		uptime:          desc("uptime_seconds", "Seconds since the relay started."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.received, c.sent, c.dropped, c.failed, c.filtered, c.requests, c.rateLimits,
		c.transportErrors, c.queueDepth, c.queueCapacity, c.queuePeak, c.deferred,
		c.inFlight, c.pausedFor, c.latency, c.health, c.uptime,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()
	m, p := s.Messages, s.Performance

	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	counter(c.received, m.TotalReceived)
	counter(c.sent, m.TotalSent)
	counter(c.dropped, m.TotalDropped)
	counter(c.failed, m.TotalFailed)
	counter(c.filtered, m.TotalFiltered)
	counter(c.requests, p.TotalRequests)
	counter(c.rateLimits, p.RateLimitsGlobal, "global")
	counter(c.rateLimits, p.RateLimitsShared, "shared")
	counter(c.rateLimits, p.RateLimitsUser, "user")
	counter(c.transportErrors, p.TransportErrors)

	gauge(c.queueDepth, float64(s.Queue.Current))
	gauge(c.queueCapacity, float64(s.Queue.Max))
	gauge(c.queuePeak, float64(s.Queue.Peak))
	gauge(c.deferred, float64(s.Queue.Deferred))
	gauge(c.inFlight, float64(s.Queue.InFlight))
	gauge(c.pausedFor, s.RateLimit.ResumeInSeconds)
	gauge(c.latency, p.AverageLatencyMs/1000)
	gauge(c.uptime, float64(s.UptimeSeconds))

	for _, h := range []stats.Health{stats.HealthOK, stats.HealthWarning, stats.HealthCritical, stats.HealthRateLimited} {
		v := 0.0
		if s.Status == h {
			v = 1
		}
		gauge(c.health, v, string(h))
	}
}
