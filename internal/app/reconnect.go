package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/shoplist/internal/state"
)

const (
	defaultRetryInterval = 2 * time.Second
	maxBackoff           = 30 * time.Second
)

// reloader is the part of the sync controller the reconnector drives.
type reloader interface {
	State() *state.Store
	Reload(ctx context.Context) error
}

// StartReconnector launches a background goroutine that reloads the bound
// identity while the snapshot is offline, backing off after each failed
// attempt. It returns immediately.
func StartReconnector(ctx context.Context, ctrl reloader, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	log := logger.With().Str("component", "reconnector").Logger()

	go func() {
		failures := 0
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			failures = reconnect(ctx, ctrl, failures, log)
			timer.Reset(calculateBackoff(failures, interval))
		}
	}()
}

// reconnect makes one attempt and returns the updated failure count.
func reconnect(ctx context.Context, ctrl reloader, failures int, log zerolog.Logger) int {
	snap := ctrl.State().Snapshot()
	if snap.Identity.None() || !snap.IsOffline() {
		return 0
	}
	if err := ctrl.Reload(ctx); err != nil {
		failures++
		log.Warn().Err(err).Int("failures", failures).Msg("reconnect failed")
		return failures
	}
	log.Info().Str("owner", snap.Identity.OwnerID).Msg("reconnected")
	return 0
}

// calculateBackoff doubles base for each consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
