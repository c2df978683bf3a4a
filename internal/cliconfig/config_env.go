package cliconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "TOTBRIDGE_"

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables already set win over the file. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func env(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// ApplyEnvConfig applies configuration from environment variables (TOTBRIDGE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("listen", env("LISTEN"), &cfg.Listen)
	s.setString("webhook-url", env("WEBHOOK_URL"), &cfg.WebhookURL)
	s.setString("username", env("USERNAME"), &cfg.Username)
	s.setString("avatar-url", env("AVATAR_URL"), &cfg.AvatarURL)
	s.setString("timestamp-style", env("TIMESTAMP_STYLE"), &cfg.TimestampStyle)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-file", env("LOG_FILE"), &cfg.LogFile)
	s.setString("journal", env("JOURNAL_PATH"), &cfg.JournalPath)
	if v := env("ALLOWED_CHANNELS"); v != "" {
		s.setStrings("allowed-channels", splitList(v), &cfg.AllowedChannels)
	}

	durations := []struct {
		flag string
		name string
		dst  *time.Duration
	}{
		{"batch-delay", "BATCH_DELAY", &cfg.BatchDelay},
		{"inter-request-delay", "INTER_REQUEST_DELAY", &cfg.InterRequestDelay},
		{"timeout", "HTTP_TIMEOUT", &cfg.HTTPTimeout},
		{"burst-window", "BURST_WINDOW", &cfg.BurstWindow},
		{"stats-interval", "STATS_INTERVAL", &cfg.StatsInterval},
		{"stream-interval", "STREAM_INTERVAL", &cfg.StreamInterval},
		{"journal-retention", "JOURNAL_RETENTION", &cfg.JournalRetention},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, env(d.name), d.dst); err != nil {
			return err
		}
	}

	if err := s.setIntFromString("queue-size", env("QUEUE_SIZE"), &cfg.QueueSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-batch-size", env("MAX_BATCH_SIZE"), &cfg.MaxBatchSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-payload-length", env("MAX_PAYLOAD_LENGTH"), &cfg.MaxPayloadLength); err != nil {
		return err
	}
	if err := s.setCountFromString("safe-batch-length", env("SAFE_BATCH_LENGTH"), &cfg.SafeBatchLength); err != nil {
		return err
	}
	if err := s.setCountFromString("max-failed-retry", env("MAX_FAILED_RETRY"), &cfg.MaxFailedRetry); err != nil {
		return err
	}
	if err := s.setCountFromString("max-requests", env("MAX_REQUESTS"), &cfg.MaxRequests); err != nil {
		return err
	}
	if err := s.setCountFromString("burst-requests", env("BURST_REQUESTS"), &cfg.BurstRequests); err != nil {
		return err
	}

	s.setBoolFromString("show-character", env("SHOW_CHARACTER"), &cfg.ShowCharacter)
	s.setBoolFromString("show-kind", env("SHOW_KIND"), &cfg.ShowKind)
	s.setBoolFromString("show-location", env("SHOW_LOCATION"), &cfg.ShowLocation)
	s.setBoolFromString("show-channel", env("SHOW_CHANNEL"), &cfg.ShowChannel)
	s.setBoolFromString("metrics", env("METRICS"), &cfg.Metrics)
	s.setBoolFromString("drain-on-stop", env("DRAIN_ON_STOP"), &cfg.DrainOnStop)
	s.setBoolFromString("watch", env("WATCH"), &cfg.Watch)

	return nil
}
