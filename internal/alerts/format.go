package alerts

import (
	"fmt"
	"unicode/utf8"
)

// Formatter renders payloads into SMS bodies and email subjects.
type Formatter struct {
	Team string
}

// NewFormatter returns a Formatter branded with team.
func NewFormatter(team string) Formatter {
	return Formatter{Team: team}
}

// SMS renders the five-line text alert, at most MaxSMSLength runes.
// When the full render is too long only the promo summary is shortened, in a
// single pass sized from the overflow.
func (f Formatter) SMS(p Payload) string {
	msg := f.renderSMS(p, p.PromoSummary)
	n := utf8.RuneCountInString(msg)
	if n <= MaxSMSLength {
		return msg
	}

	summary := []rune(p.PromoSummary)
	budget := MaxSMSLength - n + len(summary)
	keep := budget - len(ellipsis)
	if keep < 0 {
		keep = 0
	}
	msg = f.renderSMS(p, string(summary[:keep])+ellipsis)

	// The fixed lines alone can still overflow (very long opponent or URL).
	return TruncateSMS(msg)
}

func (f Formatter) renderSMS(p Payload, summary string) string {
	return fmt.Sprintf(
		"%s %s %s %s @ %s\nvs %s\n%s\nTickets: %s\nReply STOP to unsubscribe",
		headlineIcon, f.Team, p.Day, p.DisplayDate, p.Time,
		p.Opponent,
		summary,
		p.TicketURL,
	)
}

// EmailSubject renders "🎯 <team> <day> — <date> vs <opponent> | <label>".
func (f Formatter) EmailSubject(p Payload) string {
	label := NoPromosLabel
	if p.HasPromos && len(p.Promos) > 0 {
		label = truncateRunes(p.Promos[0].Description, subjectLabelMax)
	}
	return fmt.Sprintf("%s %s %s — %s vs %s | %s",
		headlineIcon, f.Team, p.Day, p.DisplayDate, p.Opponent, label)
}
