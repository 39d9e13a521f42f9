package utils

import "time"

// Clock abstracts wall-clock time so date-boundary logic (streaks, daily caps,
// period windows) is deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by the real UTC wall clock.
func SystemClock() Clock { return systemClock{} }

// DateOf truncates t to its UTC calendar date (midnight).
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole calendar days from a to b, both
// interpreted as UTC dates.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}
