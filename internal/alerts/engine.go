package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/yardgoats-tracker/internal/metrics"
	"github.com/albapepper/yardgoats-tracker/internal/recipients"
	"github.com/albapepper/yardgoats-tracker/internal/schedule"
	"github.com/albapepper/yardgoats-tracker/internal/store"
)

// RunStore is the slice of the store an alert run needs.
type RunStore interface {
	store.ScheduleReader
	store.Ledger
	store.RunLocker
	ListRecipients(ctx context.Context, activeOnly bool) ([]recipients.Recipient, error)
}

// EngineConfig wires an Engine.
type EngineConfig struct {
	Store    RunStore
	SMS      SMSTransport
	Email    EmailTransport
	TeamName string
	Logger   *slog.Logger

	// Now overrides the wall clock used for freshness checks and the
	// default run date.
	Now func() time.Time
}

// RunOptions controls a single run.
type RunOptions struct {
	// Today is the run date; zero means the current UTC date.
	Today  time.Time
	DryRun bool
}

// Engine runs the daily alert job.
type Engine struct {
	store     RunStore
	sms       SMSTransport
	email     EmailTransport
	formatter Formatter
	logger    *slog.Logger
	now       func() time.Time

	mu   sync.RWMutex
	last *Stats
}

// NewEngine creates an Engine.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		store:     cfg.Store,
		sms:       cfg.SMS,
		email:     cfg.Email,
		formatter: NewFormatter(cfg.TeamName),
		logger:    logger,
		now:       now,
	}
}

// LastStats returns the statistics of the most recent completed run.
func (e *Engine) LastStats() (Stats, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return Stats{}, false
	}
	return *e.last, true
}

// Run executes one alert run: it checks schedule freshness, selects the
// qualifying games LeadDays ahead and dispatches every recipient on every
// channel they have.
//
// Stale data, no qualifying games and no active recipients end the run early
// with zero counters and a nil error. Errors are returned only when the run
// could not be carried out at all (lock held, store unreachable).
func (e *Engine) Run(ctx context.Context, opts RunOptions) (Stats, error) {
	start := e.now()
	today := opts.Today
	if today.IsZero() {
		today = start
	}
	today = schedule.DateOf(today)
	target := schedule.TargetDate(today)

	stats := Stats{
		RunID:      uuid.NewString(),
		DryRun:     opts.DryRun,
		Today:      today.Format(schedule.DateLayout),
		TargetDate: target.Format(schedule.DateLayout),
		StartedAt:  start,
	}
	logger := e.logger.With("run_id", stats.RunID)
	logger.Info("Alert run starting",
		"today", stats.Today,
		"target_date", stats.TargetDate,
		"dry_run", opts.DryRun,
	)

	release, err := e.store.AcquireRunLock(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return stats, fmt.Errorf("acquire run lock: %w", err)
	}
	defer release()

	if err := e.run(ctx, logger, &stats, target, opts.DryRun); err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return stats, err
	}

	stats.Duration = e.now().Sub(start)
	metrics.RecordRun(stats.Outcome(), stats.Duration, stats.AlertsSent)
	e.mu.Lock()
	saved := stats
	e.last = &saved
	e.mu.Unlock()

	logger.Info("Alert run complete", "summary", stats.Summary(), "elapsed", stats.Duration.Round(time.Millisecond))
	return stats, nil
}

func (e *Engine) run(ctx context.Context, logger *slog.Logger, stats *Stats, target time.Time, dryRun bool) error {
	latest, err := e.store.LatestUpdate(ctx)
	if err != nil {
		return fmt.Errorf("check freshness: %w", err)
	}
	if !schedule.IsFresh(latest, e.now()) {
		age := schedule.Age(latest, e.now())
		logger.Warn("Schedule data is stale, sending nothing",
			"last_update", latest,
			"age_hours", int(age.Hours()),
			"max_hours", int(schedule.MaxStaleness.Hours()),
		)
		stats.Aborted = AbortStale
		return nil
	}

	games, err := e.store.GamesOn(ctx, target)
	if err != nil {
		return fmt.Errorf("load games: %w", err)
	}
	games = schedule.FilterQualifying(games, target)
	if len(games) == 0 {
		logger.Info("No qualifying home weekend games", "target_date", stats.TargetDate)
		stats.Aborted = AbortNoGames
		return nil
	}

	all, err := e.store.ListRecipients(ctx, true)
	if err != nil {
		return fmt.Errorf("load recipients: %w", err)
	}
	var active []recipients.Recipient
	for _, r := range all {
		if r.Active {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		logger.Warn("No active recipients")
		stats.Aborted = AbortNoRecipients
		return nil
	}

	stats.GamesChecked = len(games)
	d := NewDispatcher(e.store, e.sms, e.email, stats.RunID, logger)

	for _, g := range games {
		p := BuildPayload(g)
		body := e.formatter.SMS(p)
		subject := e.formatter.EmailSubject(p)
		logger.Info("Processing game",
			"game_id", g.ID,
			"date", p.GameDate,
			"opponent", p.Opponent,
			"promos", truncateRunes(p.PromoSummary, 50),
		)

		for _, r := range active {
			if r.HasPhone() {
				stats.record(store.ChannelSMS, d.SendSMS(ctx, g.ID, r, body, dryRun))
			}
			if r.HasEmail() {
				stats.record(store.ChannelEmail, d.SendEmail(ctx, p, r, subject, dryRun))
			}
		}
	}
	return nil
}
