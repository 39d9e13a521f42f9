// Package scoring holds the pure point-value rules: how big a commit is worth
// and how many commits per day may count. Nothing here touches the database.
package scoring

// Tier boundaries for the size-based policy, in lines changed
// (additions + deletions).
const (
	tierTiny   = 10
	tierSmall  = 50
	tierMedium = 150
	tierLarge  = 300
)

// DefaultMaxDailyCounted is the number of events per user per day that may
// count toward score unless overridden by configuration.
const DefaultMaxDailyCounted = 5

// Policy maps an event's size metric to a point value. Implementations must be
// pure, deterministic, and monotonic non-decreasing over the size metric.
type Policy interface {
	Points(size int) int
	Name() string
}

// TieredPolicy scores 1-5 points by diff size.
type TieredPolicy struct{}

// Points returns the tier value for the given lines-changed metric. Negative
// input is treated as 0.
func (TieredPolicy) Points(size int) int {
	if size < 0 {
		size = 0
	}
	switch {
	case size <= tierTiny:
		return 1
	case size <= tierSmall:
		return 2
	case size <= tierMedium:
		return 3
	case size <= tierLarge:
		return 4
	default:
		return 5
	}
}

func (TieredPolicy) Name() string { return "tiered" }

// FlatPolicy scores every event at a single point regardless of size.
type FlatPolicy struct{}

func (FlatPolicy) Points(size int) int { return 1 }

func (FlatPolicy) Name() string { return "flat" }

// PolicyByName resolves a configured policy name, defaulting to tiered.
func PolicyByName(name string) Policy {
	if name == "flat" {
		return FlatPolicy{}
	}
	return TieredPolicy{}
}

// ShouldCount reports whether the n-th event of a user's day (1-based ordinal)
// falls within the daily cap.
func ShouldCount(ordinal, maxDaily int) bool {
	return ordinal >= 1 && ordinal <= maxDaily
}
