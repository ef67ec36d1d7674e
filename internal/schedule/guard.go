package schedule

import "time"

// IsFresh reports whether schedule data last updated at lastUpdate can be
// trusted at now. Absent data is never fresh.
func IsFresh(lastUpdate *time.Time, now time.Time) bool {
	if lastUpdate == nil || lastUpdate.IsZero() {
		return false
	}
	return now.Sub(*lastUpdate) <= MaxStaleness
}

// Age returns how old the schedule data is at now, or -1 when absent.
func Age(lastUpdate *time.Time, now time.Time) time.Duration {
	if lastUpdate == nil || lastUpdate.IsZero() {
		return -1
	}
	return now.Sub(*lastUpdate)
}

// Qualifies reports whether g should be alerted on a run for target.
// A qualifying game is a home game on exactly the target date that falls on
// a Friday, Saturday or Sunday.
func Qualifies(g Game, target time.Time) bool {
	return g.IsHome &&
		DateOf(g.Date).Equal(DateOf(target)) &&
		weekendDays[g.DayOfWeek]
}

// FilterQualifying keeps the games that qualify for target, preserving order.
func FilterQualifying(games []Game, target time.Time) []Game {
	var out []Game
	for _, g := range games {
		if Qualifies(g, target) {
			out = append(out, g)
		}
	}
	return out
}
