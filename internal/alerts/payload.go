package alerts

import (
	"strings"

	"github.com/albapepper/yardgoats-tracker/internal/schedule"
)

// BuildPayload turns a game and its attached promotions into a payload.
func BuildPayload(g schedule.Game) Payload {
	p := Payload{
		GameID:      g.ID,
		GameDate:    g.Date.Format(schedule.DateLayout),
		DisplayDate: g.Date.Format("Mon Jan 2"),
		Day:         g.DayOfWeek,
		Time:        "TBD",
		Opponent:    g.Opponent,
		TicketURL:   DefaultTicketURL,
		Promos:      append([]schedule.Promotion{}, g.Promotions...),
		HasPromos:   len(g.Promotions) > 0,
	}
	if g.StartTime != nil && *g.StartTime != "" {
		p.Time = *g.StartTime
	}
	if g.TicketURL != nil && *g.TicketURL != "" {
		p.TicketURL = *g.TicketURL
	}

	if p.HasPromos {
		p.PromoSummary = promoSummary(g.Promotions)
	} else {
		p.PromoSummary = NoPromosSummary
	}
	return p
}

// promoSummary renders e.g. "🎁 Cowboy Hat Giveaway | 🎆 Post-Game Fireworks".
func promoSummary(promos []schedule.Promotion) string {
	parts := make([]string, 0, len(promos))
	for _, pr := range promos {
		parts = append(parts, PromoIcon(pr.Type)+" "+truncateRunes(pr.Description, promoDescMax))
	}
	return strings.Join(parts, " | ")
}
