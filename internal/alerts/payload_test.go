package alerts

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/albapepper/yardgoats-tracker/internal/schedule"
)

func strPtr(s string) *string { return &s }

func testGame() schedule.Game {
	date, _ := schedule.ParseDate("2026-04-10")
	return schedule.Game{
		ID:        42,
		Date:      date,
		DayOfWeek: "Friday",
		StartTime: strPtr("7:05 PM"),
		Opponent:  "Portland Sea Dogs",
		IsHome:    true,
		TicketURL: strPtr("https://example.com/tix"),
		Promotions: []schedule.Promotion{
			{Type: schedule.PromoGiveaway, Description: "Cowboy Hat Giveaway"},
			{Type: schedule.PromoFireworks, Description: "Post-Game Fireworks"},
		},
	}
}

func TestBuildPayload(t *testing.T) {
	p := BuildPayload(testGame())

	want := Payload{
		GameID:       42,
		GameDate:     "2026-04-10",
		DisplayDate:  "Fri Apr 10",
		Day:          "Friday",
		Time:         "7:05 PM",
		Opponent:     "Portland Sea Dogs",
		TicketURL:    "https://example.com/tix",
		PromoSummary: "🎁 Cowboy Hat Giveaway | 🎆 Post-Game Fireworks",
		HasPromos:    true,
	}
	if p.GameID != want.GameID || p.GameDate != want.GameDate || p.DisplayDate != want.DisplayDate ||
		p.Day != want.Day || p.Time != want.Time || p.Opponent != want.Opponent ||
		p.TicketURL != want.TicketURL || p.PromoSummary != want.PromoSummary || p.HasPromos != want.HasPromos {
		t.Errorf("BuildPayload() = %+v\nwant %+v", p, want)
	}
	if len(p.Promos) != 2 {
		t.Errorf("Promos = %d, want 2", len(p.Promos))
	}
}

func TestBuildPayloadDefaults(t *testing.T) {
	g := testGame()
	g.StartTime = nil
	g.TicketURL = strPtr("")
	g.Promotions = nil

	p := BuildPayload(g)
	if p.Time != "TBD" {
		t.Errorf("Time = %q, want TBD", p.Time)
	}
	if p.TicketURL != DefaultTicketURL {
		t.Errorf("TicketURL = %q, want default", p.TicketURL)
	}
	if p.HasPromos || p.PromoSummary != NoPromosSummary {
		t.Errorf("HasPromos = %v, PromoSummary = %q", p.HasPromos, p.PromoSummary)
	}
}

func TestPromoSummaryTruncatesAndIcons(t *testing.T) {
	tests := []struct {
		name  string
		promo schedule.Promotion
		want  string
	}{
		{"theme", schedule.Promotion{Type: schedule.PromoTheme, Description: "Star Wars Night"}, "🎭 Star Wars Night"},
		{"discount", schedule.Promotion{Type: schedule.PromoDiscount, Description: "$2 Hot Dogs"}, "💰 $2 Hot Dogs"},
		{"heritage", schedule.Promotion{Type: schedule.PromoHeritage, Description: "Negro Leagues Tribute"}, "⚾ Negro Leagues Tribute"},
		{"unknown type", schedule.Promotion{Type: "mascot", Description: "Chompers"}, "⭐ Chompers"},
		{
			"exactly 35 kept",
			schedule.Promotion{Type: schedule.PromoSpecial, Description: strings.Repeat("a", 35)},
			"⭐ " + strings.Repeat("a", 35),
		},
		{
			"36 cut to 32 plus ellipsis",
			schedule.Promotion{Type: schedule.PromoGiveaway, Description: strings.Repeat("b", 36)},
			"🎁 " + strings.Repeat("b", 32) + "...",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := promoSummary([]schedule.Promotion{tt.promo}); got != tt.want {
				t.Errorf("promoSummary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	s := strings.Repeat("é", 50)
	got := truncateRunes(s, 40)
	if n := utf8.RuneCountInString(got); n != 40 {
		t.Errorf("rune count = %d, want 40", n)
	}
	if !utf8.ValidString(got) {
		t.Error("truncation split a multi-byte character")
	}
	if truncateRunes("short", 40) != "short" {
		t.Error("short string was modified")
	}
}
