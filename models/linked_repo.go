package models

import "time"

// LinkedRepo is a repository the poller watches for a user. LastETag feeds
// conditional requests against the events API; a 304 keeps the tag and costs
// no API quota.
type LinkedRepo struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"index:idx_repo_user_name,unique;not null" json:"user_id"`
	FullName     string     `gorm:"size:255;index:idx_repo_user_name,unique;not null" json:"full_name"`
	LastETag     string     `gorm:"column:last_etag;size:128" json:"-"`
	PollInterval int        `gorm:"not null;default:60" json:"poll_interval"`
	LastPolledAt *time.Time `json:"last_polled_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Friendship is a directed follow edge imported from GitHub. The friends
// leaderboard scope is the mutual closure: both directions must exist.
type Friendship struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"index:idx_friend_edge,unique;not null" json:"user_id"`
	FriendUserID uint      `gorm:"index:idx_friend_edge,unique;not null" json:"friend_user_id"`
	CreatedAt    time.Time `json:"created_at"`
}
