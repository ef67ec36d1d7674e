// Package config provides centralized configuration loaded from environment
// variables. Shared by cmd/alerts and cmd/admin.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Store drivers and email providers
// --------------------------------------------------------------------------

const (
	StoreDriverPostgres = "postgres"
	StoreDriverBolt     = "bolt"

	EmailProviderSendGrid = "sendgrid"
	EmailProviderSMTP     = "smtp"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Storage
	StoreDriver    string // postgres | bolt
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration
	BoltPath       string

	// Branding used in message headlines and subjects
	TeamName string

	// SMS (Twilio)
	TwilioAccountSID        string
	TwilioAuthToken         string
	TwilioFromNumber        string
	TwilioBaseURL           string
	TwilioRequestsPerMinute int

	// Email
	EmailProvider  string // sendgrid | smtp
	SendGridAPIKey string
	SendGridURL    string
	EmailFrom      string
	EmailFromName  string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string

	// Scheduling (serve)
	AlertRunHourUTC     int
	LedgerRetentionDays int
	CleanupInterval     time.Duration

	// Status API (serve)
	APIHost           string
	APIPort           int
	CORSAllowOrigins  []string
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		StoreDriver:    strings.ToLower(envOr("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:    envOr("DATABASE_URL", ""),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 4),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,
		BoltPath:       envOr("BOLT_PATH", "data/yardgoats.db"),

		TeamName: envOr("TEAM_NAME", "Yard Goats"),

		TwilioAccountSID:        envOr("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:         envOr("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:        envOr("TWILIO_FROM_NUMBER", ""),
		TwilioBaseURL:           envOr("TWILIO_BASE_URL", "https://api.twilio.com"),
		TwilioRequestsPerMinute: envInt("TWILIO_REQUESTS_PER_MINUTE", 60),

		EmailProvider:  strings.ToLower(envOr("EMAIL_PROVIDER", EmailProviderSendGrid)),
		SendGridAPIKey: envOr("SENDGRID_API_KEY", ""),
		SendGridURL:    envOr("SENDGRID_URL", "https://api.sendgrid.com"),
		EmailFrom:      envOr("EMAIL_FROM", "alerts@yardgoatstracker.app"),
		EmailFromName:  envOr("EMAIL_FROM_NAME", "Yard Goats Alerts"),
		SMTPHost:       envOr("SMTP_HOST", ""),
		SMTPPort:       envInt("SMTP_PORT", 587),
		SMTPUsername:   envOr("SMTP_USERNAME", ""),
		SMTPPassword:   envOr("SMTP_PASSWORD", ""),

		AlertRunHourUTC:     envInt("ALERT_RUN_HOUR_UTC", 9),
		LedgerRetentionDays: envInt("LEDGER_RETENTION_DAYS", 400),
		CleanupInterval:     time.Duration(envInt("CLEANUP_INTERVAL_HOURS", 24)) * time.Hour,

		APIHost: envOr("API_HOST", "0.0.0.0"),
		APIPort: envInt("API_PORT", envInt("PORT", 8000)),
		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),
		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that make the process unusable. Missing transport
// credentials are deliberately not checked here: they fail the affected
// channel's attempts at send time instead of aborting a run.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when STORE_DRIVER=postgres")
		}
	case StoreDriverBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("BOLT_PATH must be set when STORE_DRIVER=bolt")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want postgres or bolt)", c.StoreDriver)
	}

	switch c.EmailProvider {
	case EmailProviderSendGrid, EmailProviderSMTP:
	default:
		return fmt.Errorf("unknown EMAIL_PROVIDER %q (want sendgrid or smtp)", c.EmailProvider)
	}

	if c.AlertRunHourUTC < 0 || c.AlertRunHourUTC > 23 {
		return fmt.Errorf("ALERT_RUN_HOUR_UTC must be between 0 and 23, got %d", c.AlertRunHourUTC)
	}
	return nil
}

// SMSConfigured reports whether all Twilio credentials are present.
func (c *Config) SMSConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

// EmailConfigured reports whether the selected email provider has credentials.
func (c *Config) EmailConfigured() bool {
	if c.EmailProvider == EmailProviderSMTP {
		return c.SMTPHost != ""
	}
	return c.SendGridAPIKey != ""
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
