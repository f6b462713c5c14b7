package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-vpn-storefront/internal/domain/ports/adapter"
	"telegram-vpn-storefront/internal/infra/metrics"
)

// runTimeout bounds one purge pass; a stuck panel must not wedge the ticker.
const runTimeout = 10 * time.Minute

// CleanupWorker periodically deletes panel accounts whose subscription
// expired more than thresholdDays ago.
type CleanupWorker struct {
	interval      time.Duration
	thresholdDays int
	provider      adapter.ProviderClient
	log           *zerolog.Logger
}

func NewCleanupWorker(interval time.Duration, thresholdDays int, provider adapter.ProviderClient, logger *zerolog.Logger) *CleanupWorker {
	cl := logger.With().Str("component", "CleanupWorker").Logger()
	return &CleanupWorker{
		interval:      interval,
		thresholdDays: thresholdDays,
		provider:      provider,
		log:           &cl,
	}
}

func (w *CleanupWorker) Run(ctx context.Context) error {
	if w.thresholdDays <= 0 {
		w.log.Info().Msg("cleanup disabled (threshold is zero)")
		return nil
	}
	w.log.Info().Dur("interval", w.interval).Int("threshold_days", w.thresholdDays).Msg("starting cleanup worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping cleanup worker")
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *CleanupWorker) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	n, err := w.provider.PurgeExpired(runCtx, w.thresholdDays)
	if err != nil {
		metrics.IncJobRun("cleanup", "error")
		w.log.Error().Err(err).Int("deleted", n).Msg("purge pass failed")
		return
	}
	metrics.IncJobRun("cleanup", "ok")
	if n > 0 {
		metrics.AddPurgedAccounts(n)
		w.log.Info().Int("deleted", n).Msg("expired accounts purged")
	}
}
