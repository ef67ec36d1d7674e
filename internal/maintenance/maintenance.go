// Package maintenance runs the long-lived background work of `serve`: the
// daily alert run and ledger retention cleanup.
package maintenance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/albapepper/yardgoats-tracker/internal/alerts"
	"github.com/albapepper/yardgoats-tracker/internal/config"
	"github.com/albapepper/yardgoats-tracker/internal/metrics"
	"github.com/albapepper/yardgoats-tracker/internal/store"
)

// Config controls the background tasks. An AlertHourUTC outside 0-23 or a
// non-positive duration disables the corresponding task.
type Config struct {
	AlertHourUTC    int           // Hour of day (UTC) the alert run fires
	CleanupInterval time.Duration // How often old ledger rows are pruned
	Retention       time.Duration // Ledger rows older than this are pruned
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		AlertHourUTC:    9,
		CleanupInterval: 24 * time.Hour,
		Retention:       400 * 24 * time.Hour,
	}
}

// FromConfig starts from DefaultConfig and applies the service settings.
// Zero durations keep the default; negative ones disable the task.
func FromConfig(cfg *config.Config) Config {
	c := DefaultConfig()
	c.AlertHourUTC = cfg.AlertRunHourUTC
	if cfg.CleanupInterval != 0 {
		c.CleanupInterval = cfg.CleanupInterval
	}
	if cfg.LedgerRetentionDays != 0 {
		c.Retention = time.Duration(cfg.LedgerRetentionDays) * 24 * time.Hour
	}
	return c
}

// Runner executes one alert run.
type Runner interface {
	Run(ctx context.Context, opts alerts.RunOptions) (alerts.Stats, error)
}

// Pruner removes old ledger rows.
type Pruner interface {
	PruneDeliveries(ctx context.Context, cutoff time.Time) (int, error)
}

// Start launches all configured tasks. Blocks until ctx is cancelled.
// Intended to be called with `go`.
func Start(ctx context.Context, runner Runner, pruner Pruner, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tasks started",
		"alert_hour_utc", cfg.AlertHourUTC,
		"cleanup", cfg.CleanupInterval,
		"retention", cfg.Retention)

	// Daily alert run
	if cfg.AlertHourUTC >= 0 && cfg.AlertHourUTC < 24 && runner != nil {
		go dailyLoop(ctx, cfg.AlertHourUTC, time.Now, "alerts", func() { runAlerts(ctx, runner, logger) }, logger)
	}

	// Cleanup: prune ledger rows past retention
	if cfg.CleanupInterval > 0 && cfg.Retention > 0 && pruner != nil {
		t := time.NewTicker(cfg.CleanupInterval)
		defer t.Stop()
		go runLoop(ctx, t.C, "cleanup", func() { cleanup(ctx, pruner, cfg.Retention, time.Now().UTC(), logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tasks stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, name string, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// dailyLoop calls fn once a day at hour:00 UTC.
func dailyLoop(ctx context.Context, hour int, now func() time.Time, name string, fn func(), logger *slog.Logger) {
	for {
		next := NextRun(now(), hour)
		logger.Info("Next scheduled task", "task", name, "at", next.Format(time.RFC3339))
		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			fn()
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// NextRun returns the first hour:00 UTC strictly after now.
func NextRun(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// runAlerts performs one scheduled alert run. Failures are logged; the
// schedule keeps going.
func runAlerts(ctx context.Context, runner Runner, logger *slog.Logger) {
	stats, err := runner.Run(ctx, alerts.RunOptions{})
	switch {
	case errors.Is(err, store.ErrRunInProgress):
		logger.Warn("Scheduled alert run skipped, another run is in progress")
	case err != nil:
		logger.Error("Scheduled alert run failed", "error", err)
	case stats.ShouldFail():
		logger.Error("Scheduled alert run delivered nothing", "summary", stats.Summary())
	default:
		logger.Info("Scheduled alert run finished", "summary", stats.Summary())
	}
}

// cleanup removes ledger rows older than retention.
func cleanup(ctx context.Context, pruner Pruner, retention time.Duration, now time.Time, logger *slog.Logger) int {
	n, err := pruner.PruneDeliveries(ctx, now.Add(-retention))
	if err != nil {
		logger.Warn("Cleanup: failed to prune ledger", "error", err)
		return 0
	}
	if n > 0 {
		metrics.LedgerPruned.Add(float64(n))
		logger.Info("Cleanup: pruned old ledger rows", "count", n)
	}
	return n
}
