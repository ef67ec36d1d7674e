package transport

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker/v2"

	"github.com/albapepper/yardgoats-tracker/internal/alerts"
	"github.com/albapepper/yardgoats-tracker/internal/recipients"
)

const (
	// MaxAttempts is how many times one SMS is tried before giving up.
	MaxAttempts = 3

	// RetryBase is the exponential backoff base in seconds: the wait after
	// failed attempt n is RetryBase^n seconds.
	RetryBase = 2
)

// SMSSender sends text alerts with retry and backoff.
type SMSSender struct {
	client SMSClient
	from   string
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// SMSOption customizes an SMSSender.
type SMSOption func(*SMSSender)

// WithSleep replaces the backoff wait, e.g. to skip real delays in tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) SMSOption {
	return func(s *SMSSender) { s.sleep = fn }
}

// NewSMSSender creates a sender. A nil client or empty from number yields a
// sender that reports missing_config on every real send.
func NewSMSSender(client SMSClient, from string, logger *slog.Logger, opts ...SMSOption) *SMSSender {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SMSSender{
		client: client,
		from:   from,
		logger: logger,
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send delivers body to number. Bodies over alerts.MaxSMSLength are cut
// before anything else happens, dry runs included.
func (s *SMSSender) Send(ctx context.Context, number, body string, dryRun bool) alerts.Outcome {
	masked := recipients.MaskPhone(number)

	if n := utf8.RuneCountInString(body); n > alerts.MaxSMSLength {
		s.logger.Warn("SMS body too long, truncating", "length", n, "max", alerts.MaxSMSLength)
		body = alerts.TruncateSMS(body)
	}

	if dryRun {
		s.logger.Info("[DRY RUN] Would send SMS", "to", masked, "length", utf8.RuneCountInString(body))
		return alerts.Outcome{Delivered: true, Detail: DetailDryRun}
	}

	if s.client == nil || s.from == "" {
		s.logger.Error("SMS not configured, cannot send", "to", masked)
		return alerts.Outcome{Delivered: false, Detail: DetailMissingConfig}
	}

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		receipt, err := s.client.CreateMessage(ctx, s.from, number, body)
		if err == nil {
			s.logger.Info("SMS sent", "to", masked, "sid", receipt.SID, "status", receipt.Status, "attempt", attempt)
			detail := receipt.Status
			if detail == "" {
				detail = DetailSent
			}
			return alerts.Outcome{Delivered: true, Detail: detail}
		}
		lastErr = err

		if attempt == MaxAttempts {
			break
		}
		if breakerRejected(err) {
			s.logger.Warn("SMS provider circuit open, not retrying", "to", masked, "attempt", attempt, "error", err)
			break
		}
		wait := backoff(attempt)
		s.logger.Warn("SMS attempt failed, retrying",
			"to", masked, "attempt", attempt, "max_attempts", MaxAttempts, "wait", wait, "error", err)
		if err := s.sleep(ctx, wait); err != nil {
			lastErr = err
			break
		}
	}

	s.logger.Error("SMS failed", "to", masked, "error", lastErr)
	return alerts.Outcome{Delivered: false, Detail: "failed: " + lastErr.Error()}
}

// backoff returns RetryBase^attempt seconds.
func backoff(attempt int) time.Duration {
	d := time.Second
	for i := 0; i < attempt; i++ {
		d *= RetryBase
	}
	return d
}

// breakerRejected reports whether the provider call was refused by an open
// or half-open circuit breaker. Backing off cannot help until it resets.
func breakerRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
