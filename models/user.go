package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a climber. One row per observed GitHub identity; rows are
// never hard-deleted.
type User struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	GithubID       int64  `gorm:"uniqueIndex;not null" json:"github_id"`
	Username       string `gorm:"size:64;not null" json:"username"`
	AvatarURL      string `gorm:"size:512" json:"avatar_url"`
	LifetimePoints int    `gorm:"not null;default:0" json:"lifetime_points"`
	PeriodPoints   int    `gorm:"not null;default:0;index" json:"period_points"`
	CurrentStreak  int    `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak  int    `gorm:"not null;default:0" json:"longest_streak"`
	// LastActiveDate is a UTC midnight date, not a timestamp. A streak unit is
	// one calendar day in UTC.
	LastActiveDate *time.Time `gorm:"type:date" json:"last_active_date"`
	// ScoreUpdatedAt is the ranking tie-break: on equal scores, whoever reached
	// the score first ranks higher.
	ScoreUpdatedAt time.Time      `gorm:"not null" json:"score_updated_at"`
	AccessToken    string         `gorm:"size:255" json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.ScoreUpdatedAt.IsZero() {
		u.ScoreUpdatedAt = now
	}
	u.UpdatedAt = now
	return nil
}
