package models

import "time"

// Snapshot is an immutable record of a user's rank and score at period close,
// written only by the ranking job. It is the audit trail that survives the
// period counter reset.
type Snapshot struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index:idx_snapshot_once,unique;not null" json:"user_id"`
	Scope       string    `gorm:"size:16;index:idx_snapshot_once,unique;not null;default:global" json:"scope"`
	PeriodStart time.Time `gorm:"type:date;index:idx_snapshot_once,unique;not null" json:"period_start"`
	PeriodEnd   time.Time `gorm:"type:date;not null" json:"period_end"`
	Rank        int       `gorm:"not null" json:"rank"`
	Score       int       `gorm:"not null" json:"score"`
	CreatedAt   time.Time `json:"created_at"`
}
