// Package transport delivers alerts over SMS and email.
//
// SMSSender and EmailSender implement the alert engine's transport
// interfaces. They never return errors: every outcome, including missing
// configuration and provider failures, is reported as an alerts.Outcome.
// Provider access sits behind SMSClient and EmailClient, with Twilio,
// SendGrid and SMTP implementations plus in-memory fakes for tests.
package transport

import (
	"context"
	"time"
)

// Detail strings shared by both senders.
const (
	DetailDryRun        = "dry_run"
	DetailMissingConfig = "missing_config"
	DetailSent          = "sent"
)

// MessageReceipt is what an SMS provider returns for an accepted message.
type MessageReceipt struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// SMSClient submits one text message to a provider.
type SMSClient interface {
	CreateMessage(ctx context.Context, from, to, body string) (MessageReceipt, error)
}

// EmailMessage is a fully rendered outbound email.
type EmailMessage struct {
	To       string
	From     string
	FromName string
	Subject  string
	HTML     string
}

// EmailClient submits one email and returns the provider's HTTP status.
// An error means no status was obtained.
type EmailClient interface {
	Send(ctx context.Context, msg EmailMessage) (int, error)
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
