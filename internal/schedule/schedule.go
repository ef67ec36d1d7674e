// Package schedule holds the game and promotion types produced by ingestion,
// plus the two gates the alert run applies to them: the freshness guard and
// the game qualifier.
package schedule

import (
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// LeadDays is how far ahead of a game its alert goes out.
	LeadDays = 5

	// MaxStaleness is the oldest schedule data the engine will alert from.
	MaxStaleness = 48 * time.Hour

	// DateLayout is the storage and CLI format for calendar dates.
	DateLayout = "2006-01-02"
)

// Weekend days are the only days that produce alerts.
var weekendDays = map[string]bool{
	"Friday":   true,
	"Saturday": true,
	"Sunday":   true,
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// PromoType classifies a promotion.
type PromoType string

const (
	PromoGiveaway  PromoType = "giveaway"
	PromoFireworks PromoType = "fireworks"
	PromoDiscount  PromoType = "discount"
	PromoTheme     PromoType = "theme"
	PromoHeritage  PromoType = "heritage"
	PromoSpecial   PromoType = "special"
)

// PromoTypes lists every known promotion type.
var PromoTypes = []PromoType{
	PromoGiveaway, PromoFireworks, PromoDiscount,
	PromoTheme, PromoHeritage, PromoSpecial,
}

// Valid reports whether t is one of the known promotion types.
func (t PromoType) Valid() bool {
	for _, known := range PromoTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Promotion is a single promo night attached to a game.
type Promotion struct {
	Type        PromoType `json:"promo_type"`
	Description string    `json:"description"`
}

// Game is one scheduled game. Date is a calendar date at UTC midnight.
type Game struct {
	ID         int64       `json:"id"`
	Date       time.Time   `json:"game_date"`
	DayOfWeek  string      `json:"day_of_week"`
	StartTime  *string     `json:"start_time,omitempty"`
	Opponent   string      `json:"opponent"`
	IsHome     bool        `json:"is_home"`
	TicketURL  *string     `json:"ticket_url,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Promotions []Promotion `json:"promotions"`
}

// --------------------------------------------------------------------------
// Dates
// --------------------------------------------------------------------------

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// TargetDate returns the game date a run on today alerts for.
func TargetDate(today time.Time) time.Time {
	return DateOf(today).AddDate(0, 0, LeadDays)
}
