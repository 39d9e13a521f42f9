package models

import "time"

// Trophy tiers, by final rank within a scope.
const (
	TrophyGold   = "gold"
	TrophySilver = "silver"
	TrophyBronze = "bronze"
)

// Leaderboard scopes a trophy can be awarded in.
const (
	ScopeGlobal  = "global"
	ScopeFriends = "friends"
	ScopeGroup   = "group"
)

// Trophy is awarded to the top 3 of a scope at period close. The unique index
// across (user, scope, scope_ref, period_start) makes re-running the ranking
// job for an already processed period a no-op.
type Trophy struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"index:idx_trophy_once,unique;not null" json:"user_id"`
	Scope  string `gorm:"size:16;index:idx_trophy_once,unique;not null" json:"scope"`
	// ScopeRef disambiguates which friends network or group the trophy was won
	// in; empty for global.
	ScopeRef    string    `gorm:"size:64;index:idx_trophy_once,unique" json:"scope_ref"`
	PeriodStart time.Time `gorm:"type:date;index:idx_trophy_once,unique;not null" json:"period_start"`
	PeriodEnd   time.Time `gorm:"type:date;not null" json:"period_end"`
	Rank        int       `gorm:"not null" json:"rank"`
	Tier        string    `gorm:"size:8;not null" json:"tier"`
	Score       int       `gorm:"not null" json:"score"`
	CreatedAt   time.Time `json:"created_at"`
}

// TierForRank maps a 1-based rank to a trophy tier; ranks above 3 get none.
func TierForRank(rank int) string {
	switch rank {
	case 1:
		return TrophyGold
	case 2:
		return TrophySilver
	case 3:
		return TrophyBronze
	default:
		return ""
	}
}
