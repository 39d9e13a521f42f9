package models

import "time"

// DailySummary aggregates one user's activity for one UTC day. The row doubles
// as the durable ordinal counter for the daily cap: TotalEvents increments
// exactly once per ingested event, and the post-increment value is that
// event's ordinal.
type DailySummary struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index:idx_summary_user_date,unique;not null" json:"user_id"`
	Date          time.Time `gorm:"index:idx_summary_user_date,unique;type:date;not null" json:"date"`
	TotalEvents   int       `gorm:"not null;default:0" json:"total_events"`
	CountedEvents int       `gorm:"not null;default:0" json:"counted_events"`
	PointsEarned  int       `gorm:"not null;default:0" json:"points_earned"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
