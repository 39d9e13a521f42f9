package models

import "time"

// StreakBonus is the append-only audit log of streak awards. User point totals
// must always be reconstructible from PushEvent.Points plus this log.
type StreakBonus struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	StreakDay   int       `gorm:"not null" json:"streak_day"`
	BonusPoints int       `gorm:"not null" json:"bonus_points"`
	// Milestone is "daily" for the base bonus, or the milestone name
	// ("weekly", "monthly", ...) when a threshold was reached that day.
	Milestone string    `gorm:"size:16;not null;default:daily" json:"milestone"`
	CreatedAt time.Time `json:"created_at"`
}
