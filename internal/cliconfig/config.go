package cliconfig

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/adapters/discord"
	"github.com/Nopitch/Bridge-webhook-tot-discord/pkg/bridge"
)

// Defaults specific to the CLI. Relay core defaults live in pkg/bridge.
const (
	DefaultListen           = "127.0.0.1:3000"
	DefaultUsername         = "CONAN_CHAT"
	DefaultHTTPTimeout      = 10 * time.Second
	DefaultBurstRequests    = 5
	DefaultBurstWindow      = 2 * time.Second
	DefaultStreamInterval   = 5 * time.Second
	DefaultJournalRetention = 7 * 24 * time.Hour
	DefaultLogLevel         = "info"
)

// timestampNone disables the timestamp prefix. An empty string cannot be used
// for that because empty values never override defaults.
const timestampNone = "none"

// Config holds CLI configuration for totbridge.
type Config struct {
	Listen string

	WebhookURL string
	Username   string
	AvatarURL  string

	QueueSize         int
	BatchDelay        time.Duration
	MaxBatchSize      int
	MaxFailedRetry    int
	InterRequestDelay time.Duration
	MaxRequests       int
	MaxPayloadLength  int
	SafeBatchLength   int

	HTTPTimeout   time.Duration
	BurstRequests int
	BurstWindow   time.Duration

	AllowedChannels []string
	ShowCharacter   bool
	ShowKind        bool
	ShowLocation    bool
	ShowChannel     bool
	TimestampStyle  string

	StatsInterval  time.Duration
	StreamInterval time.Duration
	Metrics        bool

	LogLevel string
	LogFile  string

	JournalPath      string
	JournalRetention time.Duration

	DrainOnStop bool
	Watch       bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	core := bridge.DefaultConfig()
	return Config{
		Listen:            DefaultListen,
		Username:          DefaultUsername,
		QueueSize:         core.QueueSize,
		BatchDelay:        core.BatchDelay,
		MaxBatchSize:      core.MaxBatchSize,
		MaxFailedRetry:    core.MaxFailedRetry,
		InterRequestDelay: core.InterRequestDelay,
		MaxRequests:       core.MaxRequests,
		MaxPayloadLength:  core.MaxPayloadLength,
		SafeBatchLength:   core.SafeBatchLength,
		HTTPTimeout:       DefaultHTTPTimeout,
		BurstRequests:     DefaultBurstRequests,
		BurstWindow:       DefaultBurstWindow,
		ShowCharacter:     core.Display.ShowCharacterName,
		ShowKind:          core.Display.ShowKind,
		ShowLocation:      core.Display.ShowLocation,
		ShowChannel:       core.Display.ShowChannel,
		TimestampStyle:    core.Display.TimestampStyle,
		StatsInterval:     core.StatsInterval,
		StreamInterval:    DefaultStreamInterval,
		Metrics:           true,
		LogLevel:          DefaultLogLevel,
		JournalRetention:  DefaultJournalRetention,
	}
}

// Validate checks the configuration for errors and normalizes derived values.
func (c *Config) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("webhook-url is required")
	}
	u, err := url.Parse(c.WebhookURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("webhook-url must be an http(s) URL")
	}

	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.BurstRequests < 0 {
		return fmt.Errorf("burst-requests must not be negative")
	}
	if c.BurstRequests > 0 && c.BurstWindow <= 0 {
		return fmt.Errorf("burst-window must be positive when burst-requests is set")
	}
	if c.StreamInterval <= 0 {
		return fmt.Errorf("stream-interval must be positive")
	}
	if c.JournalPath != "" && c.JournalRetention <= 0 {
		return fmt.Errorf("journal-retention must be positive")
	}

	c.TimestampStyle = strings.TrimSpace(c.TimestampStyle)
	c.AllowedChannels = normalizeChannels(c.AllowedChannels)

	return c.BridgeConfig().Validate()
}

// DisplayConfig returns the display settings in relay form.
func (c Config) DisplayConfig() bridge.DisplayConfig {
	style := c.TimestampStyle
	if strings.EqualFold(style, timestampNone) {
		style = ""
	}
	return bridge.DisplayConfig{
		ShowCharacterName: c.ShowCharacter,
		ShowKind:          c.ShowKind,
		ShowLocation:      c.ShowLocation,
		ShowChannel:       c.ShowChannel,
		TimestampStyle:    style,
	}
}

// BridgeConfig converts the CLI configuration into the relay core configuration.
func (c Config) BridgeConfig() bridge.Config {
	core := bridge.DefaultConfig()
	core.QueueSize = c.QueueSize
	core.BatchDelay = c.BatchDelay
	core.MaxBatchSize = c.MaxBatchSize
	core.MaxFailedRetry = c.MaxFailedRetry
	core.InterRequestDelay = c.InterRequestDelay
	core.MaxRequests = c.MaxRequests
	core.MaxPayloadLength = c.MaxPayloadLength
	core.SafeBatchLength = c.SafeBatchLength
	core.Display = c.DisplayConfig()
	core.AllowedChannels = c.AllowedChannels
	core.StatsInterval = c.StatsInterval
	core.DrainOnStop = c.DrainOnStop
	return core
}

// WebhookConfig returns the transport settings.
func (c Config) WebhookConfig() discord.Config {
	return discord.Config{
		WebhookURL:    c.WebhookURL,
		Username:      c.Username,
		AvatarURL:     c.AvatarURL,
		BurstRequests: c.BurstRequests,
		BurstWindow:   c.BurstWindow,
	}
}

// Masked returns a copy safe to log.
func (c Config) Masked() Config {
	c.WebhookURL = discord.MaskWebhookURL(c.WebhookURL)
	return c
}

// normalizeChannels trims entries and drops empty ones. A nil result means
// every channel is allowed.
func normalizeChannels(in []string) []string {
	var out []string
	for _, ch := range in {
		if ch = strings.TrimSpace(ch); ch != "" {
			out = append(out, ch)
		}
	}
	return out
}

// splitList parses a comma-separated list.
func splitList(s string) []string {
	return normalizeChannels(strings.Split(s, ","))
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an int from a pointer, so an explicit zero is kept.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if positive.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setCountFromString is setIntFromString for values where zero is meaningful.
func (s *configSetter) setCountFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 {
		return fmt.Errorf("parse %s: must not be negative", flag)
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
