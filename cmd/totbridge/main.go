package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/adapters/discord"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/adapters/ingress"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/adapters/journal"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/cliconfig"
	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/metrics"
	"github.com/Nopitch/Bridge-webhook-tot-discord/pkg/bridge"
	"github.com/Nopitch/Bridge-webhook-tot-discord/pkg/log"
)

const helpBanner = `
 _____       _   _       ____  _                       _
|_   _|__ | |_| |     |  _ \(_)___  ___ ___  _ __ __| |
  | |/ _ \| __| |_____| | | | / __|/ __/ _ \| '__/ _' |
  | | (_) | |_|_|_____| |_| | \__ \ (_| (_) | | | (_| |
  |_|\___/ \__(_)     |____/|_|___/\___\___/|_|  \__,_|
`

const helpDescription = `
Relay Tot! in-game chat to a Discord channel through a webhook.

Highlights:
  - Never blocks the game server: messages are queued and acknowledged at once.
  - Batches chat lines into as few webhook calls as Discord's limits allow.
  - Honors Discord rate limits, retries transient failures, never reorders.
  - Live stats on /stats, /stats/stream and /metrics, history on /stats/history.
  - Configure via file, env, or flags.
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  totbridge --webhook-url https://discord.com/api/webhooks/<id>/<token>
  totbridge --config $HOME/.totbridge/config.yaml --watch
  TOTBRIDGE_WEBHOOK_URL=... totbridge --listen 0.0.0.0:3000 --max-requests 2
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath, envPath string

	root := &cobra.Command{
		Use:          "totbridge",
		Short:        "Relay Tot! in-game chat to Discord through a webhook",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			// .env feeds the process environment before TOTBRIDGE_* is read.
			if err := cliconfig.LoadDotEnv(envPath); err != nil {
				return err
			}

			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}
			base := cfg

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Environment overrides file config but not flags.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cfg, cfgFile, base, changed)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file, .toml or .yaml (default: $HOME/.totbridge/config.toml)")
	f.StringVar(&envPath, "env-file", ".env", "dotenv file loaded before reading TOTBRIDGE_* variables")
	f.StringVar(&cfg.Listen, "listen", cfg.Listen, "address the game server posts chat to")

	f.StringVar(&cfg.WebhookURL, "webhook-url", cfg.WebhookURL, "Discord webhook URL")
	f.StringVar(&cfg.Username, "username", cfg.Username, "display name used for webhook messages")
	f.StringVar(&cfg.AvatarURL, "avatar-url", cfg.AvatarURL, "avatar image URL used for webhook messages")

	f.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "maximum messages waiting for delivery")
	f.DurationVar(&cfg.BatchDelay, "batch-delay", cfg.BatchDelay, "delay between delivery cycles")
	f.IntVar(&cfg.MaxBatchSize, "max-batch-size", cfg.MaxBatchSize, "messages taken from the queue per cycle")
	f.IntVar(&cfg.MaxFailedRetry, "max-failed-retry", cfg.MaxFailedRetry, "messages kept for retry when delivery stalls")
	f.DurationVar(&cfg.InterRequestDelay, "inter-request-delay", cfg.InterRequestDelay, "pause between webhook calls within a cycle")
	f.IntVar(&cfg.MaxRequests, "max-requests", cfg.MaxRequests, "webhook calls per cycle (0 = unbounded)")
	f.IntVar(&cfg.MaxPayloadLength, "max-payload-length", cfg.MaxPayloadLength, "character limit of a webhook message; longer lines are truncated")
	f.IntVar(&cfg.SafeBatchLength, "safe-batch-length", cfg.SafeBatchLength, "character budget when joining several lines into one message (0 = max-payload-length)")

	f.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout for webhook calls")
	f.IntVar(&cfg.BurstRequests, "burst-requests", cfg.BurstRequests, "webhook calls allowed per burst window (0 = no pacing)")
	f.DurationVar(&cfg.BurstWindow, "burst-window", cfg.BurstWindow, "burst window for webhook pacing")

	f.StringSliceVar(&cfg.AllowedChannels, "allowed-channels", cfg.AllowedChannels, "relay only these chat channels (default: all)")
	f.BoolVar(&cfg.ShowCharacter, "show-character", cfg.ShowCharacter, "show the character name next to the player")
	f.BoolVar(&cfg.ShowKind, "show-kind", cfg.ShowKind, "show the message radius (say, shout, ...)")
	f.BoolVar(&cfg.ShowLocation, "show-location", cfg.ShowLocation, "show the speaker's location")
	f.BoolVar(&cfg.ShowChannel, "show-channel", cfg.ShowChannel, "show the chat channel")
	f.StringVar(&cfg.TimestampStyle, "timestamp-style", cfg.TimestampStyle, "Discord timestamp style t|T|d|D|f|F|R, or none")

	f.DurationVar(&cfg.StatsInterval, "stats-interval", cfg.StatsInterval, "period of the stats log line (0 = off)")
	f.DurationVar(&cfg.StreamInterval, "stream-interval", cfg.StreamInterval, "push period of /stats/stream")
	f.BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "serve Prometheus metrics on /metrics")

	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	f.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "also write JSON logs to this file")

	f.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "SQLite file recording every stats report (optional)")
	f.DurationVar(&cfg.JournalRetention, "journal-retention", cfg.JournalRetention, "how long journal rows are kept")

	f.BoolVar(&cfg.DrainOnStop, "drain-on-stop", cfg.DrainOnStop, "flush what the rate limit allows before exiting")
	f.BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload display settings when the config file changes")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg cliconfig.Config, cfgFile string, base cliconfig.Config, changed map[string]bool) error {
	var logFile io.Writer
	if cfg.LogFile != "" {
		fh, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer fh.Close()
		logFile = fh
	}
	logger := log.NewZerologAdapter(log.Options{
		Level:   cfg.LogLevel,
		Console: true,
		File:    logFile,
	})

	logger.Info("configuration", log.Any("config", cfg.Masked()))
	logger.Info("totbridge starting",
		log.String("version", getVersion()),
		log.String("listen", cfg.Listen),
		log.String("webhook", discord.MaskWebhookURL(cfg.WebhookURL)),
		log.Int("queue_size", cfg.QueueSize),
		log.Duration("batch_delay", cfg.BatchDelay),
		log.Int("max_requests", cfg.MaxRequests),
	)

	transport := discord.NewWebhook(cfg.WebhookConfig(), &http.Client{Timeout: cfg.HTTPTimeout}, logger.Named("discord"))

	opts := []bridge.Option{
		bridge.WithLogger(logger.Named("bridge")),
		bridge.WithEventHandler(sdNotifier{logger: logger.Named("systemd")}),
	}
	srvCfg := ingress.Config{
		Addr:           cfg.Listen,
		StreamInterval: cfg.StreamInterval,
	}
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath, cfg.JournalRetention)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		opts = append(opts, bridge.WithJournal(j))
		srvCfg.History = j
	}

	b, err := bridge.New(cfg.BridgeConfig(), transport, opts...)
	if err != nil {
		return fmt.Errorf("create bridge: %w", err)
	}

	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(metrics.NewCollector(b.Snapshot))
		srvCfg.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	srv := ingress.NewServer(b, srvCfg, logger.Named("ingress"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("start bridge: %w", err)
	}

	go runWatchdog(ctx, logger.Named("systemd"))

	if cfg.Watch && cliconfig.FileExists(cfgFile) {
		w := cliconfig.NewWatcher(cfgFile, base, changed, func(c cliconfig.Config) {
			b.ApplyDisplay(c.DisplayConfig(), c.AllowedChannels)
		}, logger.Named("config"))
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Warn("config watcher stopped", log.Err(err))
			}
		}()
	}

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe(ctx) }()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received signal, stopping...")
		runErr = <-srvErr
	case runErr = <-srvErr:
		logger.Error("http server failed", log.Err(runErr))
		stop()
	}

	// Graceful shutdown
	if err := b.Stop(); err != nil {
		return fmt.Errorf("stop bridge: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("serve: %w", runErr)
	}
	return nil
}
