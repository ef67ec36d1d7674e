// Package alerts turns fresh schedule data into game alerts and delivers them
// at most once per (game, recipient, channel).
//
// Pipeline: freshness guard → qualifying games → payload → SMS/subject render
// → dedup dispatch per recipient and channel → run statistics.
// Transports are reached through SMSTransport and EmailTransport; the ledger
// through store.Ledger.
package alerts

import (
	"github.com/albapepper/yardgoats-tracker/internal/schedule"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// MaxSMSLength caps a rendered SMS, in characters (runes).
	MaxSMSLength = 320

	// DefaultTicketURL is used when a game has no ticket link.
	DefaultTicketURL = "https://www.milb.com/hartford/tickets"

	// NoPromosSummary replaces the promo summary for games without promotions.
	NoPromosSummary = "Promotions TBD — check dashboard for updates"

	// NoPromosLabel ends the email subject for games without promotions.
	NoPromosLabel = "Upcoming Game"

	headlineIcon     = "🎯"
	defaultPromoIcon = "⭐"
	promoDescMax     = 35
	subjectLabelMax  = 40
	ellipsis         = "..."
)

var promoIcons = map[schedule.PromoType]string{
	schedule.PromoGiveaway:  "🎁",
	schedule.PromoFireworks: "🎆",
	schedule.PromoDiscount:  "💰",
	schedule.PromoTheme:     "🎭",
	schedule.PromoHeritage:  "⚾",
	schedule.PromoSpecial:   "⭐",
}

// PromoIcon returns the icon for a promotion type; unknown types get a star.
func PromoIcon(t schedule.PromoType) string {
	if icon, ok := promoIcons[t]; ok {
		return icon
	}
	return defaultPromoIcon
}

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Payload is everything a message about one game needs. Building messages
// from it requires no further data access.
type Payload struct {
	GameID       int64                `json:"game_id"`
	GameDate     string               `json:"game_date"`
	DisplayDate  string               `json:"display_date"`
	Day          string               `json:"day"`
	Time         string               `json:"time"`
	Opponent     string               `json:"opponent"`
	TicketURL    string               `json:"ticket_url"`
	PromoSummary string               `json:"promo_summary"`
	Promos       []schedule.Promotion `json:"promos"`
	HasPromos    bool                 `json:"has_promos"`
}

// Outcome is what a transport reports for one send. Transports never return
// errors for delivery failures; Detail carries the provider status or reason.
type Outcome struct {
	Delivered bool
	Detail    string
}

// truncateRunes shortens s to max runes, ending with "..." when cut.
func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	keep := max - len(ellipsis)
	if keep < 0 {
		keep = 0
	}
	return string(r[:keep]) + ellipsis
}

// TruncateSMS applies the hard SMS length cap.
func TruncateSMS(body string) string {
	return truncateRunes(body, MaxSMSLength)
}
