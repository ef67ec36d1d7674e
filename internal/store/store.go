// Package store defines the persistence contracts used by the alert engine
// and the admin tooling, with two implementations: Postgres (pgx) for hosted
// deployments and an embedded bbolt file for single-machine runs.
//
// The delivery ledger doubles as the dedup witness and the audit log: one row
// per (game, recipient, channel), overwritten on every write for that key.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/albapepper/yardgoats-tracker/internal/recipients"
	"github.com/albapepper/yardgoats-tracker/internal/schedule"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRunInProgress is returned by AcquireRunLock when another run holds it.
	ErrRunInProgress = errors.New("alert run already in progress")

	// ErrInvalidPromotion is returned when a promotion has an unknown type or
	// no description.
	ErrInvalidPromotion = errors.New("invalid promotion")
)

// --------------------------------------------------------------------------
// Ledger types
// --------------------------------------------------------------------------

// Channel is a delivery medium.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Status is the outcome recorded for a delivery key.
type Status string

const (
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusPending   Status = "pending"
)

// DeliveryKey is the natural key of the ledger.
type DeliveryKey struct {
	GameID      int64   `json:"game_id"`
	RecipientID int64   `json:"recipient_id"`
	Channel     Channel `json:"channel"`
}

// Delivery is one ledger row.
type Delivery struct {
	DeliveryKey
	Status Status    `json:"status"`
	Detail string    `json:"detail,omitempty"`
	RunID  string    `json:"run_id,omitempty"`
	SentAt time.Time `json:"sent_at"`
}

// --------------------------------------------------------------------------
// Contracts
// --------------------------------------------------------------------------

// ScheduleReader is the read side of ingested schedule data.
type ScheduleReader interface {
	// LatestUpdate returns the newest game update timestamp, or nil when
	// there are no games.
	LatestUpdate(ctx context.Context) (*time.Time, error)
	// GamesOn returns every game on date with its promotions attached.
	GamesOn(ctx context.Context, date time.Time) ([]schedule.Game, error)
}

// ScheduleWriter is the contract the ingestion side writes through.
type ScheduleWriter interface {
	// UpsertGame inserts or updates the game keyed on its date and returns
	// its ID. Existing promotions are left untouched.
	UpsertGame(ctx context.Context, g schedule.Game) (int64, error)
	// ReplacePromotions atomically swaps the promotion set of a game.
	ReplacePromotions(ctx context.Context, gameID int64, promos []schedule.Promotion) error
}

// RecipientStore manages recipients.
type RecipientStore interface {
	AddRecipient(ctx context.Context, r recipients.Recipient) (int64, error)
	ListRecipients(ctx context.Context, activeOnly bool) ([]recipients.Recipient, error)
	SetRecipientActive(ctx context.Context, id int64, active bool) error
}

// Ledger records delivery attempts.
type Ledger interface {
	HasDelivery(ctx context.Context, key DeliveryKey) (bool, error)
	// RecordDelivery upserts the row for d's key; the last write wins.
	RecordDelivery(ctx context.Context, d Delivery) error
	// ListDeliveries returns ledger rows for gameID, or all rows when
	// gameID is 0, newest first.
	ListDeliveries(ctx context.Context, gameID int64) ([]Delivery, error)
	// PruneDeliveries removes rows written before cutoff.
	PruneDeliveries(ctx context.Context, cutoff time.Time) (int, error)
}

// RunLocker provides run-level mutual exclusion.
type RunLocker interface {
	// AcquireRunLock returns ErrRunInProgress when the lock is held.
	AcquireRunLock(ctx context.Context) (release func(), err error)
}

// Store is everything a deployment's backing store provides.
type Store interface {
	ScheduleReader
	ScheduleWriter
	RecipientStore
	Ledger
	RunLocker
	Ping(ctx context.Context) error
	Close() error
}

// checkContact rejects recipients that bypassed recipients.New.
func checkPromotions(promos []schedule.Promotion) error {
	for _, p := range promos {
		if !p.Type.Valid() {
			return fmt.Errorf("promotion type %q: %w", p.Type, ErrInvalidPromotion)
		}
		if strings.TrimSpace(p.Description) == "" {
			return fmt.Errorf("%s promotion without description: %w", p.Type, ErrInvalidPromotion)
		}
	}
	return nil
}

func checkContact(r recipients.Recipient) error {
	if !r.HasPhone() && !r.HasEmail() {
		return &recipients.ValidationError{Reason: "at least one of phone or email is required"}
	}
	return nil
}
