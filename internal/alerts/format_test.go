package alerts

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/albapepper/yardgoats-tracker/internal/schedule"
)

func TestFormatterSMS(t *testing.T) {
	f := NewFormatter("Yard Goats")
	got := f.SMS(BuildPayload(testGame()))
	want := "🎯 Yard Goats Friday Fri Apr 10 @ 7:05 PM\n" +
		"vs Portland Sea Dogs\n" +
		"🎁 Cowboy Hat Giveaway | 🎆 Post-Game Fireworks\n" +
		"Tickets: https://example.com/tix\n" +
		"Reply STOP to unsubscribe"
	if got != want {
		t.Errorf("SMS() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatterSMSTruncatesSummaryOnly(t *testing.T) {
	f := NewFormatter("Yard Goats")
	p := BuildPayload(testGame())
	p.PromoSummary = strings.Repeat("x", 400)

	got := f.SMS(p)
	if n := utf8.RuneCountInString(got); n > MaxSMSLength {
		t.Fatalf("SMS length = %d, want <= %d", n, MaxSMSLength)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 5 {
		t.Fatalf("SMS has %d lines, want 5:\n%s", len(lines), got)
	}
	if !strings.HasSuffix(lines[2], "...") {
		t.Errorf("summary line %q does not end with ellipsis", lines[2])
	}
	if lines[3] != "Tickets: https://example.com/tix" || lines[4] != "Reply STOP to unsubscribe" {
		t.Errorf("fixed lines changed: %q / %q", lines[3], lines[4])
	}
}

func TestFormatterSMSHardCap(t *testing.T) {
	f := NewFormatter("Yard Goats")
	p := BuildPayload(testGame())
	p.TicketURL = "https://example.com/" + strings.Repeat("t", 400)

	got := f.SMS(p)
	if n := utf8.RuneCountInString(got); n != MaxSMSLength {
		t.Errorf("SMS length = %d, want %d", n, MaxSMSLength)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("hard-capped SMS does not end with ellipsis")
	}
}

func TestFormatterEmailSubject(t *testing.T) {
	f := NewFormatter("Yard Goats")
	tests := []struct {
		name   string
		promos []schedule.Promotion
		want   string
	}{
		{
			name:   "first promo as label",
			promos: testGame().Promotions,
			want:   "🎯 Yard Goats Friday — Fri Apr 10 vs Portland Sea Dogs | Cowboy Hat Giveaway",
		},
		{
			name:   "no promos",
			promos: nil,
			want:   "🎯 Yard Goats Friday — Fri Apr 10 vs Portland Sea Dogs | Upcoming Game",
		},
		{
			name:   "long label truncated to 40",
			promos: []schedule.Promotion{{Type: schedule.PromoTheme, Description: strings.Repeat("L", 41)}},
			want:   "🎯 Yard Goats Friday — Fri Apr 10 vs Portland Sea Dogs | " + strings.Repeat("L", 37) + "...",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testGame()
			g.Promotions = tt.promos
			if got := f.EmailSubject(BuildPayload(g)); got != tt.want {
				t.Errorf("EmailSubject() = %q, want %q", got, tt.want)
			}
		})
	}
}
