package alerts

import (
	"context"
	"log/slog"
	"time"

	"github.com/albapepper/yardgoats-tracker/internal/metrics"
	"github.com/albapepper/yardgoats-tracker/internal/recipients"
	"github.com/albapepper/yardgoats-tracker/internal/store"
)

// SMSTransport delivers one text message.
type SMSTransport interface {
	Send(ctx context.Context, number, body string, dryRun bool) Outcome
}

// EmailTransport delivers one HTML email rendered from p.
type EmailTransport interface {
	Send(ctx context.Context, address, subject string, p Payload, dryRun bool) Outcome
}

// Result classifies one dispatch for the run statistics.
type Result int

const (
	ResultSent Result = iota
	ResultFailed
	ResultSkipped
)

func (r Result) String() string {
	switch r {
	case ResultSent:
		return "sent"
	case ResultFailed:
		return "failed"
	case ResultSkipped:
		return "skipped"
	}
	return "unknown"
}

// Dispatcher sends at most one message per (game, recipient, channel).
//
// Any existing ledger row for a key, delivered or failed, suppresses the
// send; a failed delivery is not retried by later runs. Every real attempt
// is recorded as soon as the transport returns.
//
// Dry runs bypass the ledger entirely: no lookup and no write. A dry-run
// "sent" count therefore says what would be attempted if nothing had been
// delivered yet, not what a real run would send.
type Dispatcher struct {
	ledger store.Ledger
	sms    SMSTransport
	email  EmailTransport
	runID  string
	logger *slog.Logger
	now    func() time.Time
}

// NewDispatcher returns a Dispatcher that stamps ledger rows with runID.
func NewDispatcher(ledger store.Ledger, sms SMSTransport, email EmailTransport, runID string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		ledger: ledger,
		sms:    sms,
		email:  email,
		runID:  runID,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SendSMS texts body to the recipient's phone for gameID.
func (d *Dispatcher) SendSMS(ctx context.Context, gameID int64, r recipients.Recipient, body string, dryRun bool) Result {
	key := store.DeliveryKey{GameID: gameID, RecipientID: r.ID, Channel: store.ChannelSMS}
	return d.dispatch(ctx, key, recipients.MaskPhone(*r.Phone), dryRun, func() Outcome {
		return d.sms.Send(ctx, *r.Phone, body, dryRun)
	})
}

// SendEmail mails the payload to the recipient's address for its game.
func (d *Dispatcher) SendEmail(ctx context.Context, p Payload, r recipients.Recipient, subject string, dryRun bool) Result {
	key := store.DeliveryKey{GameID: p.GameID, RecipientID: r.ID, Channel: store.ChannelEmail}
	return d.dispatch(ctx, key, recipients.MaskEmail(*r.Email), dryRun, func() Outcome {
		return d.email.Send(ctx, *r.Email, subject, p, dryRun)
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, key store.DeliveryKey, to string, dryRun bool, send func() Outcome) Result {
	log := d.logger.With("game_id", key.GameID, "recipient_id", key.RecipientID, "channel", key.Channel, "to", to)

	if !dryRun {
		seen, err := d.ledger.HasDelivery(ctx, key)
		if err != nil {
			log.Error("Ledger lookup failed, not sending", "error", err)
			return d.count(key.Channel, ResultFailed)
		}
		if seen {
			log.Debug("Already attempted, skipping")
			return d.count(key.Channel, ResultSkipped)
		}
	}

	out := send()

	if !dryRun {
		status := store.StatusFailed
		if out.Delivered {
			status = store.StatusDelivered
		}
		rec := store.Delivery{
			DeliveryKey: key,
			Status:      status,
			Detail:      out.Detail,
			RunID:       d.runID,
			SentAt:      d.now(),
		}
		if err := d.ledger.RecordDelivery(ctx, rec); err != nil {
			// The provider call already happened; report it as it went.
			log.Error("Failed to record delivery", "status", status, "error", err)
		}
	}

	if out.Delivered {
		log.Info("Alert sent", "detail", out.Detail, "dry_run", dryRun)
		return d.count(key.Channel, ResultSent)
	}
	log.Warn("Alert failed", "detail", out.Detail)
	return d.count(key.Channel, ResultFailed)
}

func (d *Dispatcher) count(ch store.Channel, r Result) Result {
	metrics.RecordDelivery(string(ch), r.String())
	return r
}
