package bridge

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/ports"
)

// journalTimeout bounds one journal write.
const journalTimeout = 10 * time.Second

// reporter logs a stats line on a fixed interval and mirrors it to the journal.
type reporter struct {
	bridge   *Bridge
	interval time.Duration
	journal  Journal
	logger   ports.Logger

	c *cron.Cron
}

func newReporter(b *Bridge, interval time.Duration, journal Journal, logger ports.Logger) *reporter {
	return &reporter{
		bridge:   b,
		interval: interval,
		journal:  journal,
		logger:   logger,
	}
}

func (r *reporter) start() {
	if r.interval <= 0 {
		return
	}
	r.c = cron.New()
	r.c.Schedule(cron.Every(r.interval), cron.FuncJob(r.report))
	r.c.Start()
}

// stop waits for a running report and writes a final one.
func (r *reporter) stop() {
	if r.c == nil {
		return
	}
	<-r.c.Stop().Done()
	r.c = nil
	r.report()
}

func (r *reporter) report() {
	snap := r.bridge.Snapshot()
	m, p := snap.Messages, snap.Performance

	r.logger.Info("stats",
		ports.String("status", string(snap.Status)),
		ports.Float64("received_per_min", m.ReceivedPerMinute),
		ports.Float64("sent_per_min", m.SentPerMinute),
		ports.Float64("requests_per_min", p.RequestsPerMinute),
		ports.Int("queue", snap.Queue.Current),
		ports.Int("queue_max", snap.Queue.Max),
		ports.Int("peak_queue", snap.Queue.Peak),
		ports.Int("in_flight", snap.Queue.InFlight),
		ports.Int("deferred", snap.Queue.Deferred),
		ports.Uint64("lost", m.TotalDropped),
		ports.Uint64("failed", m.TotalFailed),
		ports.Uint64("rate_limits", p.RateLimits),
		ports.Uint64("rate_limits_global", p.RateLimitsGlobal),
		ports.Uint64("rate_limits_shared", p.RateLimitsShared),
		ports.Uint64("rate_limits_user", p.RateLimitsUser),
	)

	if r.journal == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	now := r.bridge.clock.Now()
	if err := r.journal.Append(ctx, now, snap); err != nil {
		r.logger.Warn("stats journal append failed", ports.Err(err))
		return
	}
	if n, err := r.journal.Prune(ctx, now); err != nil {
		r.logger.Warn("stats journal prune failed", ports.Err(err))
	} else if n > 0 {
		r.logger.Debug("stats journal pruned", ports.Int64("rows", n))
	}
}
