package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/albapepper/yardgoats-tracker/internal/alerts"
	"github.com/albapepper/yardgoats-tracker/internal/config"
	"github.com/albapepper/yardgoats-tracker/internal/recipients"
	"github.com/albapepper/yardgoats-tracker/internal/schedule"
	"github.com/albapepper/yardgoats-tracker/internal/store"
)

type fixedRuns struct{ stats *alerts.Stats }

func (f fixedRuns) LastStats() (alerts.Stats, bool) {
	if f.stats == nil {
		return alerts.Stats{}, false
	}
	return *f.stats, true
}

func testConfig() *config.Config {
	return &config.Config{
		StoreDriver:       config.StoreDriverBolt,
		TeamName:          "Yard Goats",
		CORSAllowOrigins:  []string{"*"},
		RateLimitEnabled:  false,
		RateLimitRequests: 60,
		RateLimitWindow:   time.Minute,
	}
}

func openStore(t *testing.T) *store.Bolt {
	t.Helper()
	s, err := store.OpenBolt(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("OpenBolt() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rec, body
}

func TestHealthRoutes(t *testing.T) {
	router := NewRouter(openStore(t), nil, testConfig())

	tests := []struct {
		path   string
		status int
	}{
		{"/health", http.StatusOK},
		{"/health/db", http.StatusOK},
		{"/", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec, body := get(t, router, tt.path)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if body == nil {
				t.Error("response is not JSON")
			}
			if rec.Header().Get("X-Process-Time") == "" {
				t.Error("X-Process-Time header missing")
			}
		})
	}
}

type downStore struct{ *store.Bolt }

func (downStore) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestHealthDBUnavailable(t *testing.T) {
	router := NewRouter(downStore{openStore(t)}, nil, testConfig())
	rec, body := get(t, router, "/health/db")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if body["status"] != "unhealthy" {
		t.Errorf("body = %v", body)
	}
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	date := schedule.DateOf(time.Now().AddDate(0, 0, 5))
	if _, err := s.UpsertGame(ctx, schedule.Game{Date: date, DayOfWeek: "Friday", Opponent: "Sea Dogs", IsHome: true, UpdatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("UpsertGame() error = %v", err)
	}
	for _, r := range []struct{ name, phone, email string }{
		{"Alice", "+18605550001", "alice@test.com"},
		{"Bob", "", "bob@test.com"},
	} {
		rc, _ := recipients.New(r.name, r.phone, r.email)
		if _, err := s.AddRecipient(ctx, rc); err != nil {
			t.Fatalf("AddRecipient() error = %v", err)
		}
	}

	last := &alerts.Stats{RunID: "run-1", AlertsSent: 3}
	router := NewRouter(s, fixedRuns{last}, testConfig())
	rec, body := get(t, router, "/api/v1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	sched := body["schedule"].(map[string]any)
	if sched["fresh"] != true {
		t.Errorf("schedule.fresh = %v, want true", sched["fresh"])
	}
	rcp := body["recipients"].(map[string]any)
	if rcp["active"] != float64(2) || rcp["with_phone"] != float64(1) || rcp["with_email"] != float64(2) {
		t.Errorf("recipients = %v", rcp)
	}
	lastRun := body["last_run"].(map[string]any)
	if lastRun["run_id"] != "run-1" || lastRun["alerts_sent"] != float64(3) {
		t.Errorf("last_run = %v", lastRun)
	}
}

func TestDeliveries(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	for _, d := range []store.Delivery{
		{DeliveryKey: store.DeliveryKey{GameID: 1, RecipientID: 1, Channel: store.ChannelSMS}, Status: store.StatusDelivered, Detail: "queued"},
		{DeliveryKey: store.DeliveryKey{GameID: 1, RecipientID: 1, Channel: store.ChannelEmail}, Status: store.StatusFailed, Detail: "http_500"},
		{DeliveryKey: store.DeliveryKey{GameID: 2, RecipientID: 1, Channel: store.ChannelSMS}, Status: store.StatusDelivered, Detail: "sent"},
	} {
		if err := s.RecordDelivery(ctx, d); err != nil {
			t.Fatalf("RecordDelivery() error = %v", err)
		}
	}
	router := NewRouter(s, nil, testConfig())

	tests := []struct {
		name   string
		path   string
		status int
		count  float64
	}{
		{"all", "/api/v1/deliveries", http.StatusOK, 3},
		{"one game", "/api/v1/deliveries?game_id=1", http.StatusOK, 2},
		{"unknown game", "/api/v1/deliveries?game_id=99", http.StatusOK, 0},
		{"bad id", "/api/v1/deliveries?game_id=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := get(t, router, tt.path)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK && body["count"] != tt.count {
				t.Errorf("count = %v, want %v", body["count"], tt.count)
			}
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	router := NewRouter(openStore(t), nil, testConfig())
	get(t, router, "/health")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "yardgoats_api_requests_total") {
		t.Error("metrics output missing API request counter")
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitEnabled = true
	cfg.RateLimitRequests = 2
	cfg.RateLimitWindow = time.Hour
	router := NewRouter(openStore(t), nil, cfg)

	var last int
	for i := 0; i < 3; i++ {
		rec, _ := get(t, router, "/health")
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", last)
	}
}
