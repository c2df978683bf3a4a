package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	yaml "go.yaml.in/yaml/v3"
)

// FileConfig mirrors Config but uses strings for durations to keep the file
// format friendly. Pointers distinguish an explicit zero or false from unset.
type FileConfig struct {
	Listen string `toml:"listen" yaml:"listen"`

	WebhookURL string `toml:"webhook_url" yaml:"webhook_url"`
	Username   string `toml:"username" yaml:"username"`
	AvatarURL  string `toml:"avatar_url" yaml:"avatar_url"`

	QueueSize         int    `toml:"queue_size" yaml:"queue_size"`
	BatchDelay        string `toml:"batch_delay" yaml:"batch_delay"`
	MaxBatchSize      int    `toml:"max_batch_size" yaml:"max_batch_size"`
	MaxFailedRetry    *int   `toml:"max_failed_retry" yaml:"max_failed_retry"`
	InterRequestDelay string `toml:"inter_request_delay" yaml:"inter_request_delay"`
	MaxRequests       *int   `toml:"max_requests" yaml:"max_requests"`
	MaxPayloadLength  int    `toml:"max_payload_length" yaml:"max_payload_length"`
	SafeBatchLength   *int   `toml:"safe_batch_length" yaml:"safe_batch_length"`

	HTTPTimeout   string `toml:"http_timeout" yaml:"http_timeout"`
	BurstRequests *int   `toml:"burst_requests" yaml:"burst_requests"`
	BurstWindow   string `toml:"burst_window" yaml:"burst_window"`

	AllowedChannels []string `toml:"allowed_channels" yaml:"allowed_channels"`
	ShowCharacter   *bool    `toml:"show_character" yaml:"show_character"`
	ShowKind        *bool    `toml:"show_kind" yaml:"show_kind"`
	ShowLocation    *bool    `toml:"show_location" yaml:"show_location"`
	ShowChannel     *bool    `toml:"show_channel" yaml:"show_channel"`
	TimestampStyle  string   `toml:"timestamp_style" yaml:"timestamp_style"`

	StatsInterval  string `toml:"stats_interval" yaml:"stats_interval"`
	StreamInterval string `toml:"stream_interval" yaml:"stream_interval"`
	Metrics        *bool  `toml:"metrics" yaml:"metrics"`

	LogLevel string `toml:"log_level" yaml:"log_level"`
	LogFile  string `toml:"log_file" yaml:"log_file"`

	JournalPath      string `toml:"journal_path" yaml:"journal_path"`
	JournalRetention string `toml:"journal_retention" yaml:"journal_retention"`

	DrainOnStop *bool `toml:"drain_on_stop" yaml:"drain_on_stop"`
	Watch       *bool `toml:"watch" yaml:"watch"`
}

// LoadFileConfig reads and parses a config file. Files ending in .yaml or
// .yml are parsed as YAML, anything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	return parseFileConfig(path, b)
}

func parseFileConfig(path string, b []byte) (FileConfig, error) {
	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("yaml unmarshal: %w", err)
		}
	default:
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("toml unmarshal: %w", err)
		}
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.totbridge/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".totbridge", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", fc.Listen, &cfg.Listen)
	s.setString("webhook-url", fc.WebhookURL, &cfg.WebhookURL)
	s.setString("username", fc.Username, &cfg.Username)
	s.setString("avatar-url", fc.AvatarURL, &cfg.AvatarURL)
	s.setString("timestamp-style", fc.TimestampStyle, &cfg.TimestampStyle)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)
	s.setString("journal", fc.JournalPath, &cfg.JournalPath)
	s.setStrings("allowed-channels", fc.AllowedChannels, &cfg.AllowedChannels)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"batch-delay", fc.BatchDelay, &cfg.BatchDelay},
		{"inter-request-delay", fc.InterRequestDelay, &cfg.InterRequestDelay},
		{"timeout", fc.HTTPTimeout, &cfg.HTTPTimeout},
		{"burst-window", fc.BurstWindow, &cfg.BurstWindow},
		{"stats-interval", fc.StatsInterval, &cfg.StatsInterval},
		{"stream-interval", fc.StreamInterval, &cfg.StreamInterval},
		{"journal-retention", fc.JournalRetention, &cfg.JournalRetention},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("queue-size", fc.QueueSize, &cfg.QueueSize)
	s.setInt("max-batch-size", fc.MaxBatchSize, &cfg.MaxBatchSize)
	s.setInt("max-payload-length", fc.MaxPayloadLength, &cfg.MaxPayloadLength)
	s.setIntPtr("max-failed-retry", fc.MaxFailedRetry, &cfg.MaxFailedRetry)
	s.setIntPtr("max-requests", fc.MaxRequests, &cfg.MaxRequests)
	s.setIntPtr("safe-batch-length", fc.SafeBatchLength, &cfg.SafeBatchLength)
	s.setIntPtr("burst-requests", fc.BurstRequests, &cfg.BurstRequests)

	s.setBool("show-character", fc.ShowCharacter, &cfg.ShowCharacter)
	s.setBool("show-kind", fc.ShowKind, &cfg.ShowKind)
	s.setBool("show-location", fc.ShowLocation, &cfg.ShowLocation)
	s.setBool("show-channel", fc.ShowChannel, &cfg.ShowChannel)
	s.setBool("metrics", fc.Metrics, &cfg.Metrics)
	s.setBool("drain-on-stop", fc.DrainOnStop, &cfg.DrainOnStop)
	s.setBool("watch", fc.Watch, &cfg.Watch)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
