package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/albapepper/yardgoats-tracker/internal/metrics"
)

// DefaultSendGridURL is the SendGrid v3 API root.
const DefaultSendGridURL = "https://api.sendgrid.com"

// SendGridClient sends email through the SendGrid v3 mail/send endpoint.
type SendGridClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	breaker    *gobreaker.CircuitBreaker[int]
	logger     *slog.Logger
}

// NewSendGridClient creates a SendGrid client.
func NewSendGridClient(baseURL, apiKey string, logger *slog.Logger) *SendGridClient {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultSendGridURL
	}
	return &SendGridClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		breaker:    newBreaker[int]("sendgrid", logger),
		logger:     logger,
	}
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

// serverError carries a 5xx status through the breaker so it counts as a
// failure while the status still reaches the caller.
type serverError struct{ status int }

func (e *serverError) Error() string { return fmt.Sprintf("sendgrid returned %d", e.status) }

// Send posts msg and returns SendGrid's status code (202 on acceptance).
func (c *SendGridClient) Send(ctx context.Context, msg EmailMessage) (int, error) {
	start := time.Now()
	status, err := c.breaker.Execute(func() (int, error) {
		return c.send(ctx, msg)
	})
	metrics.RecordProviderCall("sendgrid", time.Since(start), err)

	var se *serverError
	if errors.As(err, &se) {
		return se.status, nil
	}
	return status, err
}

func (c *SendGridClient) send(ctx context.Context, msg EmailMessage) (int, error) {
	body := sgRequest{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: msg.To}}}},
		From:             sgAddress{Email: msg.From, Name: msg.FromName},
		Subject:          msg.Subject,
		Content:          []sgContent{{Type: "text/html", Value: msg.HTML}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sendgrid request: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 500 {
		return 0, &serverError{status: resp.StatusCode}
	}
	if resp.StatusCode >= 300 {
		c.logger.Warn("SendGrid rejected message", "status", resp.StatusCode, "body", truncate(raw, 200))
	}
	return resp.StatusCode, nil
}
