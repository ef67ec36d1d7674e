package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/albapepper/yardgoats-tracker/internal/metrics"
)

// DefaultTwilioBaseURL is the Twilio REST API root.
const DefaultTwilioBaseURL = "https://api.twilio.com"

// TwilioClient sends messages through the Twilio Messages API.
type TwilioClient struct {
	httpClient *http.Client
	baseURL    string
	accountSID string
	authToken  string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[MessageReceipt]
	logger     *slog.Logger
}

// NewTwilioClient creates a rate-limited Twilio client.
func NewTwilioClient(baseURL, accountSID, authToken string, requestsPerMinute int, logger *slog.Logger) *TwilioClient {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultTwilioBaseURL
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	rps := float64(requestsPerMinute) / 60.0
	return &TwilioClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		breaker:    newBreaker[MessageReceipt]("twilio", logger),
		logger:     logger,
	}
}

// twilioError is the error body Twilio returns on 4xx/5xx.
type twilioError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
}

// CreateMessage submits one SMS.
func (c *TwilioClient) CreateMessage(ctx context.Context, from, to, body string) (MessageReceipt, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return MessageReceipt{}, fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	receipt, err := c.breaker.Execute(func() (MessageReceipt, error) {
		return c.createMessage(ctx, from, to, body)
	})
	metrics.RecordProviderCall("twilio", time.Since(start), err)
	return receipt, err
}

func (c *TwilioClient) createMessage(ctx context.Context, from, to, body string) (MessageReceipt, error) {
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)

	u := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, url.PathEscape(c.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return MessageReceipt{}, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return MessageReceipt{}, fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return MessageReceipt{}, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var te twilioError
		if json.Unmarshal(raw, &te) == nil && te.Message != "" {
			return MessageReceipt{}, fmt.Errorf("twilio %d (code %d): %s", resp.StatusCode, te.Code, te.Message)
		}
		return MessageReceipt{}, fmt.Errorf("twilio returned %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var receipt MessageReceipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return MessageReceipt{}, fmt.Errorf("decode response: %w", err)
	}
	return receipt, nil
}

// truncate returns a shortened string form of b for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
