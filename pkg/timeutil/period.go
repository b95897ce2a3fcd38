package timeutil

import "time"

// PeriodKey returns the UTC calendar-day bucket for t, e.g. "2026-08-31".
// Leaderboard aggregation windows are keyed by this value.
func PeriodKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
