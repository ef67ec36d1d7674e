package transport

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/albapepper/yardgoats-tracker/internal/alerts"
	"github.com/albapepper/yardgoats-tracker/internal/recipients"
)

//go:embed templates/alert_email.html
var templateFS embed.FS

var emailTemplate = template.Must(
	template.New("alert_email.html").
		Funcs(template.FuncMap{"promoIcon": alerts.PromoIcon}).
		ParseFS(templateFS, "templates/alert_email.html"),
)

// EmailSender renders and sends HTML alert emails.
type EmailSender struct {
	client   EmailClient
	from     string
	fromName string
	team     string
	logger   *slog.Logger
}

// NewEmailSender creates a sender. A nil client or empty from address yields
// a sender that reports missing_config on every real send.
func NewEmailSender(client EmailClient, from, fromName, team string, logger *slog.Logger) *EmailSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailSender{
		client:   client,
		from:     from,
		fromName: fromName,
		team:     team,
		logger:   logger,
	}
}

// RenderEmail renders the HTML body for p.
func RenderEmail(team string, p alerts.Payload) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Team string
		alerts.Payload
	}{Team: team, Payload: p}
	if err := emailTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

// Send delivers the alert for p to address. Only a 2xx provider status
// counts as delivered.
func (s *EmailSender) Send(ctx context.Context, address, subject string, p alerts.Payload, dryRun bool) alerts.Outcome {
	masked := recipients.MaskEmail(address)

	html, err := RenderEmail(s.team, p)
	if err != nil {
		s.logger.Error("Email render failed", "to", masked, "error", err)
		return alerts.Outcome{Delivered: false, Detail: "exception: " + err.Error()}
	}

	if dryRun {
		s.logger.Info("[DRY RUN] Would send email", "to", masked, "subject", subject)
		return alerts.Outcome{Delivered: true, Detail: DetailDryRun}
	}

	if s.client == nil || s.from == "" {
		s.logger.Error("Email not configured, cannot send", "to", masked)
		return alerts.Outcome{Delivered: false, Detail: DetailMissingConfig}
	}

	status, err := s.client.Send(ctx, EmailMessage{
		To:       address,
		From:     s.from,
		FromName: s.fromName,
		Subject:  subject,
		HTML:     html,
	})
	if err != nil {
		s.logger.Error("Email failed", "to", masked, "error", err)
		return alerts.Outcome{Delivered: false, Detail: "exception: " + err.Error()}
	}

	detail := fmt.Sprintf("http_%d", status)
	if status >= 200 && status < 300 {
		s.logger.Info("Email sent", "to", masked, "status", status)
		return alerts.Outcome{Delivered: true, Detail: detail}
	}
	s.logger.Error("Email rejected", "to", masked, "status", status)
	return alerts.Outcome{Delivered: false, Detail: detail}
}
