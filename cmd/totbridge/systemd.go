package main

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/Nopitch/Bridge-webhook-tot-discord/pkg/bridge"
	"github.com/Nopitch/Bridge-webhook-tot-discord/pkg/log"
)

// sdNotifier reports bridge lifecycle changes to systemd. Outside a
// notify-type unit SdNotify is a no-op.
type sdNotifier struct {
	logger log.Logger
}

func (n sdNotifier) OnStateChange(_, current bridge.State, reason string) {
	n.logger.Debug("bridge state changed", log.String("state", current.String()), log.String("reason", reason))

	var state string
	switch current {
	case bridge.StateRunning:
		state = daemon.SdNotifyReady
	case bridge.StateStopping:
		state = daemon.SdNotifyStopping
	default:
		return
	}
	if _, err := daemon.SdNotify(false, state); err != nil {
		n.logger.Warn("sd_notify failed", log.Err(err))
	}
}

// runWatchdog pings the systemd watchdog at half the configured interval
// until ctx is canceled. It returns at once when the watchdog is disabled.
func runWatchdog(ctx context.Context, logger log.Logger) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("systemd watchdog check failed", log.Err(err))
		return
	}
	if interval == 0 {
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				logger.Warn("watchdog notify failed", log.Err(err))
			}
		}
	}
}
