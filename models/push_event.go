package models

import "time"

// PushEvent stores one externally observed commit or push. The unique index on
// ExternalID is the deduplication point: a second ingestion attempt with the
// same id must hit the constraint and become a no-op.
type PushEvent struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ExternalID string `gorm:"size:128;uniqueIndex;not null" json:"external_id"`
	UserID     uint   `gorm:"index;not null" json:"user_id"`
	RepoID     uint   `gorm:"index" json:"repo_id"`
	CommitSHA  string `gorm:"size:64" json:"commit_sha"`
	// LinesChanged is additions+deletions; CommitCount is the push size when
	// per-commit stats are not available.
	LinesChanged int `gorm:"not null;default:0" json:"lines_changed"`
	CommitCount  int `gorm:"not null;default:0" json:"commit_count"`
	Points       int `gorm:"not null;default:0" json:"points"`
	// Counted reports whether this event fell within the daily cap. Fixed at
	// creation, never revised.
	Counted    bool      `gorm:"not null;default:false" json:"counted"`
	DayOrdinal int       `gorm:"not null;default:0" json:"day_ordinal"`
	OccurredAt time.Time `gorm:"index;not null" json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}
