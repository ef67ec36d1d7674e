// Package handler provides HTTP handlers for the status API.
// Handlers read through the store contracts and the engine's last run; they
// never trigger deliveries.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/albapepper/yardgoats-tracker/internal/alerts"
	"github.com/albapepper/yardgoats-tracker/internal/api/respond"
	"github.com/albapepper/yardgoats-tracker/internal/config"
	"github.com/albapepper/yardgoats-tracker/internal/recipients"
	"github.com/albapepper/yardgoats-tracker/internal/schedule"
	"github.com/albapepper/yardgoats-tracker/internal/store"
)

// Store is the read-only slice of the store the handlers use.
type Store interface {
	Ping(ctx context.Context) error
	LatestUpdate(ctx context.Context) (*time.Time, error)
	ListRecipients(ctx context.Context, activeOnly bool) ([]recipients.Recipient, error)
	ListDeliveries(ctx context.Context, gameID int64) ([]store.Delivery, error)
}

// RunReporter exposes the most recent alert run.
type RunReporter interface {
	LastStats() (alerts.Stats, bool)
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store Store
	runs  RunReporter
	cfg   *config.Config
	now   func() time.Time
}

// New creates a Handler. runs may be nil when no engine is attached.
func New(s Store, runs RunReporter, cfg *config.Config) *Handler {
	return &Handler{
		store: s,
		runs:  runs,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) timestamp() string {
	return h.now().Format(time.RFC3339)
}

// Root serves API info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"name":   h.cfg.TeamName + " Alerts API",
		"status": "running",
		"routes": []string{"/health", "/health/db", "/api/v1/status", "/api/v1/deliveries", "/metrics"},
	})
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": h.timestamp(),
	})
}

// HealthCheckDB verifies store connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"database":  "disconnected",
			"driver":    h.cfg.StoreDriver,
			"error":     "Store connectivity check failed",
			"timestamp": h.timestamp(),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"driver":    h.cfg.StoreDriver,
		"timestamp": h.timestamp(),
	})
}

// Status reports schedule freshness, recipient counts and the last run.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now()

	latest, err := h.store.LatestUpdate(ctx)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusServiceUnavailable, "STORE_ERROR", "Failed to read schedule freshness", err.Error())
		return
	}
	all, err := h.store.ListRecipients(ctx, false)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusServiceUnavailable, "STORE_ERROR", "Failed to list recipients", err.Error())
		return
	}

	active, withPhone, withEmail := 0, 0, 0
	for _, rc := range all {
		if !rc.Active {
			continue
		}
		active++
		if rc.HasPhone() {
			withPhone++
		}
		if rc.HasEmail() {
			withEmail++
		}
	}

	sched := map[string]any{
		"fresh":       schedule.IsFresh(latest, now),
		"max_age_hrs": int(schedule.MaxStaleness.Hours()),
		"next_target": schedule.TargetDate(now).Format(schedule.DateLayout),
	}
	if latest != nil {
		sched["last_update"] = latest.UTC().Format(time.RFC3339)
		sched["age_hours"] = int(schedule.Age(latest, now).Hours())
	}

	var lastRun any
	if h.runs != nil {
		if s, ok := h.runs.LastStats(); ok {
			lastRun = s
		}
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"team":     h.cfg.TeamName,
		"schedule": sched,
		"recipients": map[string]any{
			"total":      len(all),
			"active":     active,
			"with_phone": withPhone,
			"with_email": withEmail,
		},
		"channels": map[string]bool{
			"sms":   h.cfg.SMSConfigured(),
			"email": h.cfg.EmailConfigured(),
		},
		"last_run":  lastRun,
		"timestamp": h.timestamp(),
	})
}

// Deliveries lists ledger rows, optionally filtered by ?game_id=.
func (h *Handler) Deliveries(w http.ResponseWriter, r *http.Request) {
	var gameID int64
	if raw := r.URL.Query().Get("game_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_GAME_ID", "game_id must be a positive integer")
			return
		}
		gameID = id
	}

	rows, err := h.store.ListDeliveries(r.Context(), gameID)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusServiceUnavailable, "STORE_ERROR", "Failed to list deliveries", err.Error())
		return
	}
	if rows == nil {
		rows = []store.Delivery{}
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"count":      len(rows),
		"deliveries": rows,
	})
}
