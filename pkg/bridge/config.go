package bridge

import (
	"fmt"
	"time"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/app"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"
)

// Default configuration values.
const (
	DefaultQueueSize         = 500
	DefaultBatchDelay        = 2500 * time.Millisecond
	DefaultMaxBatchSize      = 20
	DefaultMaxFailedRetry    = 200
	DefaultInterRequestDelay = 500 * time.Millisecond
	DefaultMaxRequests       = 1
	DefaultMaxPayloadLength  = 2000
	DefaultSafeBatchLength   = 1900
	DefaultStatsInterval     = 5 * time.Minute
	DefaultDrainTicks        = 3
)

// DisplayConfig selects which event fields appear in a relayed line.
type DisplayConfig = app.DisplayConfig

// Config holds the relay core settings.
type Config struct {
	// QueueSize bounds the ingestion queue.
	QueueSize int

	BatchDelay        time.Duration
	MaxBatchSize      int
	MaxFailedRetry    int
	InterRequestDelay time.Duration

	// MaxRequests caps dispatches per cycle. Zero means unbounded.
	MaxRequests int

	// MaxPayloadLength is the provider's per-message character limit.
	// Longer messages are truncated to it.
	MaxPayloadLength int

	// SafeBatchLength bounds payloads that join several messages. It must
	// not exceed MaxPayloadLength; zero packs to MaxPayloadLength.
	SafeBatchLength int

	Display         DisplayConfig
	AllowedChannels []string

	// StatsInterval is the period of the stats report. Zero disables it.
	StatsInterval time.Duration

	// DrainOnStop runs up to DrainTicks extra cycles on Stop.
	DrainOnStop bool
	DrainTicks  int
}

// DefaultConfig returns a Config with the stock delivery settings.
func DefaultConfig() Config {
	return Config{
		QueueSize:         DefaultQueueSize,
		BatchDelay:        DefaultBatchDelay,
		MaxBatchSize:      DefaultMaxBatchSize,
		MaxFailedRetry:    DefaultMaxFailedRetry,
		InterRequestDelay: DefaultInterRequestDelay,
		MaxRequests:       DefaultMaxRequests,
		MaxPayloadLength:  DefaultMaxPayloadLength,
		SafeBatchLength:   DefaultSafeBatchLength,
		Display:           app.DefaultDisplayConfig(),
		StatsInterval:     DefaultStatsInterval,
		DrainTicks:        DefaultDrainTicks,
	}
}

// Validate checks the configuration. Errors wrap domain.ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.QueueSize <= 0:
		return invalid("queue size must be positive")
	case c.BatchDelay <= 0:
		return invalid("batch delay must be positive")
	case c.MaxBatchSize <= 0:
		return invalid("max batch size must be positive")
	case c.MaxFailedRetry < 0:
		return invalid("max failed retry must not be negative")
	case c.InterRequestDelay < 0:
		return invalid("inter-request delay must not be negative")
	case c.MaxRequests < 0:
		return invalid("max requests must not be negative")
	case c.MaxPayloadLength <= 0:
		return invalid("max payload length must be positive")
	case c.SafeBatchLength < 0 || c.SafeBatchLength > c.MaxPayloadLength:
		return invalid("safe batch length must be between 0 and the max payload length")
	case c.StatsInterval < 0:
		return invalid("stats interval must not be negative")
	case c.DrainTicks < 0:
		return invalid("drain ticks must not be negative")
	case !app.ValidTimestampStyle(c.Display.TimestampStyle):
		return invalid(fmt.Sprintf("timestamp style %q must be one of t, T, d, D, f, F, R", c.Display.TimestampStyle))
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, msg)
}

func (c Config) workerConfig() app.WorkerConfig {
	return app.WorkerConfig{
		BatchDelay:        c.BatchDelay,
		MaxBatchSize:      c.MaxBatchSize,
		MaxFailedRetry:    c.MaxFailedRetry,
		InterRequestDelay: c.InterRequestDelay,
		MaxRequests:       c.MaxRequests,
		MaxPayloadLength:  c.MaxPayloadLength,
		SafeBatchLength:   c.SafeBatchLength,
	}
}
