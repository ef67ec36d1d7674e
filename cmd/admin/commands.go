package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/albapepper/yardgoats-tracker/internal/recipients"
	"github.com/albapepper/yardgoats-tracker/internal/schedule"
	"github.com/albapepper/yardgoats-tracker/internal/store"
)

const none = "—"

func orNone(s *string) string {
	if s == nil || *s == "" {
		return none
	}
	return *s
}

func addRecipient(ctx context.Context, out io.Writer, st store.RecipientStore, name, phone, email string) error {
	r, err := recipients.New(name, phone, email)
	if err != nil {
		return err
	}
	id, err := st.AddRecipient(ctx, r)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Added recipient id=%d  name=%q  phone=%s  email=%s\n", id, r.Name, orNone(r.Phone), orNone(r.Email))
	return nil
}

func listRecipients(ctx context.Context, out io.Writer, st store.RecipientStore, all bool) error {
	rows, err := st.ListRecipients(ctx, !all)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "No recipients found.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tName\tPhone\tEmail\tActive")
	for _, r := range rows {
		active := "❌"
		if r.Active {
			active = "✅"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Name, orNone(r.Phone), orNone(r.Email), active)
	}
	return tw.Flush()
}

func setActive(ctx context.Context, out io.Writer, st store.RecipientStore, id int64, active bool) error {
	if err := st.SetRecipientActive(ctx, id, active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no recipient found with id=%d", id)
		}
		return err
	}
	if active {
		fmt.Fprintf(out, "✅ Restored recipient id=%d\n", id)
	} else {
		fmt.Fprintf(out, "✅ Deactivated recipient id=%d  (record kept for audit; use 'restore' to re-enable)\n", id)
	}
	return nil
}

// statusStore is what the status summary reads.
type statusStore interface {
	store.ScheduleReader
	store.RecipientStore
	ListDeliveries(ctx context.Context, gameID int64) ([]store.Delivery, error)
}

func printStatus(ctx context.Context, out io.Writer, st statusStore) error {
	active, err := st.ListRecipients(ctx, true)
	if err != nil {
		return err
	}
	all, err := st.ListRecipients(ctx, false)
	if err != nil {
		return err
	}
	latest, err := st.LatestUpdate(ctx)
	if err != nil {
		return err
	}
	deliveries, err := st.ListDeliveries(ctx, 0)
	if err != nil {
		return err
	}

	refresh := "No data yet"
	if latest != nil {
		refresh = latest.UTC().Format(time.RFC3339)
		if !schedule.IsFresh(latest, time.Now()) {
			refresh += " (stale)"
		}
	}

	var delivered, failed int
	for _, d := range deliveries {
		if d.Status == store.StatusDelivered {
			delivered++
		} else if d.Status == store.StatusFailed {
			failed++
		}
	}

	rule := strings.Repeat("─", 47)
	fmt.Fprintln(out, "── Yard Goats Tracker Status "+strings.Repeat("─", 18))
	fmt.Fprintf(out, "  Active recipients : %d\n", len(active))
	fmt.Fprintf(out, "  Total recipients  : %d\n", len(all))
	fmt.Fprintf(out, "  Last data refresh : %s\n", refresh)
	fmt.Fprintf(out, "  Ledger            : %d delivered, %d failed\n", delivered, failed)
	fmt.Fprintln(out, rule)
	return nil
}

// gameSeed is one game entered by hand, for local runs without the scraper.
type gameSeed struct {
	Date      string
	Opponent  string
	StartTime string
	TicketURL string
	Away      bool
	Promos    []string // "type:description"
}

func parsePromo(s string) (schedule.Promotion, error) {
	typ, desc, ok := strings.Cut(s, ":")
	p := schedule.Promotion{
		Type:        schedule.PromoType(strings.ToLower(strings.TrimSpace(typ))),
		Description: strings.TrimSpace(desc),
	}
	if !ok || p.Description == "" {
		return p, fmt.Errorf("promotion %q: want type:description", s)
	}
	if !p.Type.Valid() {
		known := make([]string, len(schedule.PromoTypes))
		for i, t := range schedule.PromoTypes {
			known[i] = string(t)
		}
		return p, fmt.Errorf("promotion %q: unknown type, want one of %s", s, strings.Join(known, ", "))
	}
	return p, nil
}

// seedGame upserts one game and replaces its promotions. Everything is
// validated before the first write.
func seedGame(ctx context.Context, out io.Writer, st store.ScheduleWriter, seed gameSeed, now time.Time) error {
	date, err := schedule.ParseDate(seed.Date)
	if err != nil {
		return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", seed.Date)
	}
	if strings.TrimSpace(seed.Opponent) == "" {
		return errors.New("--opponent is required")
	}

	promos := make([]schedule.Promotion, 0, len(seed.Promos))
	for _, raw := range seed.Promos {
		p, err := parsePromo(raw)
		if err != nil {
			return err
		}
		promos = append(promos, p)
	}

	g := schedule.Game{
		Date:      date,
		DayOfWeek: date.Weekday().String(),
		Opponent:  strings.TrimSpace(seed.Opponent),
		IsHome:    !seed.Away,
		UpdatedAt: now.UTC(),
	}
	if seed.StartTime != "" {
		g.StartTime = &seed.StartTime
	}
	if seed.TicketURL != "" {
		g.TicketURL = &seed.TicketURL
	}

	id, err := st.UpsertGame(ctx, g)
	if err != nil {
		return err
	}
	if err := st.ReplacePromotions(ctx, id, promos); err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Seeded game id=%d  %s %s vs %s  promotions=%d\n",
		id, g.DayOfWeek, seed.Date, g.Opponent, len(promos))
	return nil
}
