package alerts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/albapepper/yardgoats-tracker/internal/recipients"
	"github.com/albapepper/yardgoats-tracker/internal/store"
)

type memLedger struct {
	mu       sync.Mutex
	rows     map[store.DeliveryKey]store.Delivery
	readErr  error
	writeErr error
}

func newMemLedger() *memLedger {
	return &memLedger{rows: make(map[store.DeliveryKey]store.Delivery)}
}

func (l *memLedger) HasDelivery(ctx context.Context, key store.DeliveryKey) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.readErr != nil {
		return false, l.readErr
	}
	_, ok := l.rows[key]
	return ok, nil
}

func (l *memLedger) RecordDelivery(ctx context.Context, d store.Delivery) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeErr != nil {
		return l.writeErr
	}
	l.rows[d.DeliveryKey] = d
	return nil
}

func (l *memLedger) ListDeliveries(ctx context.Context, gameID int64) ([]store.Delivery, error) {
	return nil, nil
}

func (l *memLedger) PruneDeliveries(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

type stubSMS struct {
	calls int
	out   Outcome
}

func (s *stubSMS) Send(ctx context.Context, number, body string, dryRun bool) Outcome {
	s.calls++
	return s.out
}

type stubEmail struct {
	calls int
	out   Outcome
}

func (s *stubEmail) Send(ctx context.Context, address, subject string, p Payload, dryRun bool) Outcome {
	s.calls++
	return s.out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bothChannels(t *testing.T) recipients.Recipient {
	t.Helper()
	r, err := recipients.New("Alice", "+18605550001", "alice@test.com")
	if err != nil {
		t.Fatalf("recipients.New() error = %v", err)
	}
	r.ID = 1
	return r
}

func TestDispatcherRecordsAndDedups(t *testing.T) {
	ctx := context.Background()
	ledger := newMemLedger()
	sms := &stubSMS{out: Outcome{Delivered: true, Detail: "queued"}}
	d := NewDispatcher(ledger, sms, &stubEmail{}, "run-1", quietLogger())
	r := bothChannels(t)

	if got := d.SendSMS(ctx, 9, r, "body", false); got != ResultSent {
		t.Fatalf("first SendSMS() = %v, want sent", got)
	}
	row := ledger.rows[store.DeliveryKey{GameID: 9, RecipientID: 1, Channel: store.ChannelSMS}]
	if row.Status != store.StatusDelivered || row.Detail != "queued" || row.RunID != "run-1" || row.SentAt.IsZero() {
		t.Errorf("ledger row = %+v", row)
	}

	if got := d.SendSMS(ctx, 9, r, "body", false); got != ResultSkipped {
		t.Errorf("second SendSMS() = %v, want skipped", got)
	}
	if sms.calls != 1 {
		t.Errorf("transport calls = %d, want 1", sms.calls)
	}
}

func TestDispatcherFailedRowBlocksRetry(t *testing.T) {
	ctx := context.Background()
	ledger := newMemLedger()
	email := &stubEmail{out: Outcome{Delivered: false, Detail: "http_500"}}
	d := NewDispatcher(ledger, &stubSMS{}, email, "run-1", quietLogger())
	r := bothChannels(t)
	p := Payload{GameID: 9}

	if got := d.SendEmail(ctx, p, r, "subj", false); got != ResultFailed {
		t.Fatalf("SendEmail() = %v, want failed", got)
	}
	row := ledger.rows[store.DeliveryKey{GameID: 9, RecipientID: 1, Channel: store.ChannelEmail}]
	if row.Status != store.StatusFailed || row.Detail != "http_500" {
		t.Errorf("ledger row = %+v", row)
	}

	email.out = Outcome{Delivered: true, Detail: "http_202"}
	if got := d.SendEmail(ctx, p, r, "subj", false); got != ResultSkipped {
		t.Errorf("retry SendEmail() = %v, want skipped", got)
	}
	if email.calls != 1 {
		t.Errorf("transport calls = %d, want 1", email.calls)
	}
}

func TestDispatcherDryRunBypassesLedger(t *testing.T) {
	ctx := context.Background()
	ledger := newMemLedger()
	ledger.rows[store.DeliveryKey{GameID: 9, RecipientID: 1, Channel: store.ChannelSMS}] = store.Delivery{Status: store.StatusDelivered}
	sms := &stubSMS{out: Outcome{Delivered: true, Detail: "dry_run"}}
	d := NewDispatcher(ledger, sms, &stubEmail{}, "run-1", quietLogger())

	if got := d.SendSMS(ctx, 9, bothChannels(t), "body", true); got != ResultSent {
		t.Errorf("dry-run SendSMS() = %v, want sent", got)
	}
	if len(ledger.rows) != 1 {
		t.Errorf("dry run wrote to the ledger: %d rows", len(ledger.rows))
	}
}

func TestDispatcherLedgerErrors(t *testing.T) {
	ctx := context.Background()
	r := bothChannels(t)

	t.Run("read error fails without sending", func(t *testing.T) {
		ledger := newMemLedger()
		ledger.readErr = errors.New("db down")
		sms := &stubSMS{out: Outcome{Delivered: true}}
		d := NewDispatcher(ledger, sms, &stubEmail{}, "run-1", quietLogger())

		if got := d.SendSMS(ctx, 9, r, "body", false); got != ResultFailed {
			t.Errorf("SendSMS() = %v, want failed", got)
		}
		if sms.calls != 0 {
			t.Errorf("transport calls = %d, want 0", sms.calls)
		}
	})

	t.Run("write error keeps send result", func(t *testing.T) {
		ledger := newMemLedger()
		ledger.writeErr = errors.New("disk full")
		sms := &stubSMS{out: Outcome{Delivered: true, Detail: "queued"}}
		d := NewDispatcher(ledger, sms, &stubEmail{}, "run-1", quietLogger())

		if got := d.SendSMS(ctx, 9, r, "body", false); got != ResultSent {
			t.Errorf("SendSMS() = %v, want sent", got)
		}
	})
}

func TestStats(t *testing.T) {
	tests := []struct {
		name       string
		stats      Stats
		shouldFail bool
		outcome    string
	}{
		{"all sent", Stats{AlertsSent: 2, SMSSent: 1, EmailSent: 1}, false, "ok"},
		{"partial", Stats{AlertsSent: 1, EmailSent: 1, SMSFailed: 1}, false, "partial"},
		{"nothing delivered", Stats{SMSFailed: 1, EmailFailed: 1}, true, "failed"},
		{"all skipped", Stats{Skipped: 4}, false, "ok"},
		{"aborted", Stats{Aborted: AbortStale}, false, "aborted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.ShouldFail(); got != tt.shouldFail {
				t.Errorf("ShouldFail() = %v, want %v", got, tt.shouldFail)
			}
			if got := tt.stats.Outcome(); got != tt.outcome {
				t.Errorf("Outcome() = %q, want %q", got, tt.outcome)
			}
		})
	}
}

func TestStatsSummary(t *testing.T) {
	s := Stats{DryRun: true, GamesChecked: 1, AlertsSent: 2, SMSSent: 1, EmailSent: 1}
	want := "dry_run=true games_checked=1 alerts_sent=2 sms_sent=1 email_sent=1 sms_failed=0 email_failed=0 skipped=0"
	if got := s.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}
