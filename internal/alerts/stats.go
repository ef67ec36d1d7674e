package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/albapepper/yardgoats-tracker/internal/store"
)

// Reasons a run ends before dispatching anything.
const (
	AbortStale        = "stale_data"
	AbortNoGames      = "no_games"
	AbortNoRecipients = "no_recipients"
)

// Stats summarizes one alert run.
type Stats struct {
	RunID        string        `json:"run_id"`
	DryRun       bool          `json:"dry_run"`
	Today        string        `json:"today"`
	TargetDate   string        `json:"target_date"`
	Aborted      string        `json:"aborted,omitempty"`
	GamesChecked int           `json:"games_checked"`
	AlertsSent   int           `json:"alerts_sent"`
	SMSSent      int           `json:"sms_sent"`
	EmailSent    int           `json:"email_sent"`
	SMSFailed    int           `json:"sms_failed"`
	EmailFailed  int           `json:"email_failed"`
	Skipped      int           `json:"skipped"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration_ns"`
}

func (s *Stats) record(ch store.Channel, r Result) {
	switch r {
	case ResultSkipped:
		s.Skipped++
	case ResultSent:
		s.AlertsSent++
		if ch == store.ChannelSMS {
			s.SMSSent++
		} else {
			s.EmailSent++
		}
	case ResultFailed:
		if ch == store.ChannelSMS {
			s.SMSFailed++
		} else {
			s.EmailFailed++
		}
	}
}

// Failed is the number of failed attempts on either channel.
func (s Stats) Failed() int {
	return s.SMSFailed + s.EmailFailed
}

// ShouldFail reports whether the run should exit non-zero: something failed
// and nothing was delivered.
func (s Stats) ShouldFail() bool {
	return s.Failed() > 0 && s.AlertsSent == 0
}

// Outcome labels the run for metrics.
func (s Stats) Outcome() string {
	switch {
	case s.Aborted != "":
		return "aborted"
	case s.ShouldFail():
		return "failed"
	case s.Failed() > 0:
		return "partial"
	}
	return "ok"
}

// Summary returns a one-line summary for logs and CLI output.
func (s Stats) Summary() string {
	var b strings.Builder
	if s.DryRun {
		b.WriteString("dry_run=true ")
	}
	fmt.Fprintf(&b, "games_checked=%d alerts_sent=%d sms_sent=%d email_sent=%d sms_failed=%d email_failed=%d skipped=%d",
		s.GamesChecked, s.AlertsSent, s.SMSSent, s.EmailSent, s.SMSFailed, s.EmailFailed, s.Skipped)
	if s.Aborted != "" {
		fmt.Fprintf(&b, " aborted=%s", s.Aborted)
	}
	return b.String()
}
