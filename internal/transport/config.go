package transport

import (
	"log/slog"
	"strings"

	"github.com/albapepper/yardgoats-tracker/internal/config"
)

// NewFromConfig builds both senders from cfg. A channel without credentials
// gets a sender with no client, which reports missing_config per attempt.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*SMSSender, *EmailSender) {
	var smsClient SMSClient
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		smsClient = NewTwilioClient(cfg.TwilioBaseURL, cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioRequestsPerMinute, logger)
	} else {
		logger.Warn("Twilio credentials not set, SMS sends will fail with missing_config")
	}

	var emailClient EmailClient
	switch {
	case !cfg.EmailConfigured():
		logger.Warn("Email provider credentials not set, email sends will fail with missing_config", "provider", cfg.EmailProvider)
	case cfg.EmailProvider == config.EmailProviderSMTP:
		emailClient = NewSMTPClient(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, senderDomain(cfg.EmailFrom), logger)
	default:
		emailClient = NewSendGridClient(cfg.SendGridURL, cfg.SendGridAPIKey, logger)
	}

	return NewSMSSender(smsClient, cfg.TwilioFromNumber, logger),
		NewEmailSender(emailClient, cfg.EmailFrom, cfg.EmailFromName, cfg.TeamName, logger)
}

func senderDomain(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "localhost"
}
