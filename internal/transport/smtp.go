package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"gopkg.in/gomail.v2"

	"github.com/albapepper/yardgoats-tracker/internal/metrics"
)

// SMTPClient sends email through an SMTP relay.
type SMTPClient struct {
	dialer  *gomail.Dialer
	domain  string
	breaker *gobreaker.CircuitBreaker[int]
}

// NewSMTPClient creates a client for host:port. domain is used for
// Message-ID headers.
func NewSMTPClient(host string, port int, username, password, domain string, logger *slog.Logger) *SMTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPClient{
		dialer:  gomail.NewDialer(host, port, username, password),
		domain:  domain,
		breaker: newBreaker[int]("smtp", logger),
	}
}

// Send hands msg to the relay. SMTP has no HTTP status, so a clean handoff
// is reported as 200.
func (c *SMTPClient) Send(ctx context.Context, msg EmailMessage) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m := gomail.NewMessage()
	m.SetHeader("Message-ID", generateMessageID(c.domain))
	m.SetHeader("Date", time.Now().Format(time.RFC1123Z))
	m.SetAddressHeader("From", msg.From, msg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	start := time.Now()
	status, err := c.breaker.Execute(func() (int, error) {
		if err := c.dialer.DialAndSend(m); err != nil {
			return 0, fmt.Errorf("smtp send: %w", err)
		}
		return http.StatusOK, nil
	})
	metrics.RecordProviderCall("smtp", time.Since(start), err)
	return status, err
}

func generateMessageID(domain string) string {
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
