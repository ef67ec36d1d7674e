package transport

import (
	"context"
	"testing"

	"github.com/albapepper/yardgoats-tracker/internal/config"
)

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.Config
		wantSMS   bool
		wantEmail string
	}{
		{
			name:      "nothing configured",
			cfg:       config.Config{EmailProvider: config.EmailProviderSendGrid},
			wantEmail: "",
		},
		{
			name: "twilio and sendgrid",
			cfg: config.Config{
				TwilioAccountSID: "AC1", TwilioAuthToken: "tok", TwilioFromNumber: "+18605550000",
				EmailProvider: config.EmailProviderSendGrid, SendGridAPIKey: "SG.x", EmailFrom: "a@b.co",
			},
			wantSMS:   true,
			wantEmail: "sendgrid",
		},
		{
			name: "smtp",
			cfg: config.Config{
				EmailProvider: config.EmailProviderSMTP, SMTPHost: "smtp.example.com", SMTPPort: 587, EmailFrom: "a@b.co",
			},
			wantEmail: "smtp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sms, email := NewFromConfig(&tt.cfg, quietLogger())
			if got := sms.client != nil; got != tt.wantSMS {
				t.Errorf("sms client set = %v, want %v", got, tt.wantSMS)
			}
			var kind string
			switch email.client.(type) {
			case *SendGridClient:
				kind = "sendgrid"
			case *SMTPClient:
				kind = "smtp"
			}
			if kind != tt.wantEmail {
				t.Errorf("email client = %q, want %q", kind, tt.wantEmail)
			}
		})
	}
}

func TestUnconfiguredSendersReportMissingConfig(t *testing.T) {
	sms, email := NewFromConfig(&config.Config{EmailProvider: config.EmailProviderSendGrid}, quietLogger())
	if out := sms.Send(context.Background(), "+18605551234", "hi", false); out.Detail != DetailMissingConfig {
		t.Errorf("sms outcome = %+v", out)
	}
	if out := email.Send(context.Background(), "a@b.co", "s", testPayload(), false); out.Detail != DetailMissingConfig {
		t.Errorf("email outcome = %+v", out)
	}
}

func TestSenderDomain(t *testing.T) {
	for in, want := range map[string]string{
		"alerts@yardgoats.app": "yardgoats.app",
		"bad":                  "localhost",
		"trailing@":            "localhost",
	} {
		if got := senderDomain(in); got != want {
			t.Errorf("senderDomain(%q) = %q, want %q", in, got, want)
		}
	}
}
