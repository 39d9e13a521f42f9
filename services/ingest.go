// Package services implements the scoring and ranking engine: event
// ingestion, the daily cap, streaks, leaderboard reads, the periodic ranking
// job, and the poll-based sync. All cross-request coordination goes through
// the database's transactional guarantees, never in-memory locks.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Kaboochy/GitSummit/github"
	"github.com/Kaboochy/GitSummit/models"
	"github.com/Kaboochy/GitSummit/scoring"
	"github.com/Kaboochy/GitSummit/utils"
)

var (
	// ErrInvalidEvent marks a raw event missing its external id or identity.
	ErrInvalidEvent = errors.New("invalid event: missing external id or user identity")
)

// RawEvent is the normalized form of one externally observed commit or push,
// produced at the ingestion boundary (webhook handler or poller) before any
// scoring logic runs.
type RawEvent struct {
	ExternalID   string
	GithubID     int64
	Username     string
	AvatarURL    string
	RepoID       uint
	RepoFullName string
	CommitSHA    string
	// LinesChanged below zero means unknown; ingestion will try to enrich it
	// and otherwise fall back to the minimum size.
	LinesChanged int
	CommitCount  int
	OccurredAt   time.Time
}

// IngestResult reports what one ingestion attempt did.
type IngestResult struct {
	Accepted    bool               `json:"accepted"`
	Duplicate   bool               `json:"duplicate"`
	Event       *models.PushEvent  `json:"event,omitempty"`
	StreakBonus int                `json:"streak_bonus"`
}

// Enricher supplies diff stats when the original payload lacks them.
type Enricher interface {
	FetchCommitStats(ctx context.Context, repoFullName, sha string) (*github.CommitStats, error)
}

// IngestService turns raw events into scored, capped, deduplicated PushEvents.
type IngestService struct {
	db       *gorm.DB
	policy   scoring.Policy
	maxDaily int
	clock    utils.Clock
	enricher Enricher
	streaks  *StreakService
}

// NewIngestService wires an IngestService. enricher may be nil to disable
// size-metric enrichment.
func NewIngestService(db *gorm.DB, policy scoring.Policy, maxDaily int, clock utils.Clock, enricher Enricher, streaks *StreakService) *IngestService {
	if maxDaily <= 0 {
		maxDaily = scoring.DefaultMaxDailyCounted
	}
	return &IngestService{
		db:       db,
		policy:   policy,
		maxDaily: maxDaily,
		clock:    clock,
		enricher: enricher,
		streaks:  streaks,
	}
}

// Ingest processes one raw event at most once. A duplicate external id is a
// successful no-op: no second event row, no second point credit. On a
// non-duplicate, the event is scored, counted against the daily cap, and the
// user's totals updated, all in one transaction.
func (s *IngestService) Ingest(ctx context.Context, raw RawEvent) (*IngestResult, error) {
	if raw.ExternalID == "" || raw.GithubID == 0 {
		return nil, ErrInvalidEvent
	}

	// Cheap fast path before the enrichment call; the unique index below is
	// still the authoritative gate for races.
	var seen int64
	if err := s.db.WithContext(ctx).Model(&models.PushEvent{}).
		Where("external_id = ?", raw.ExternalID).
		Count(&seen).Error; err != nil {
		return nil, err
	}
	if seen > 0 {
		return &IngestResult{Duplicate: true}, nil
	}

	size := s.resolveSize(ctx, &raw)

	user, err := s.resolveUser(ctx, raw)
	if err != nil {
		return nil, err
	}

	occurred := raw.OccurredAt
	if occurred.IsZero() {
		occurred = s.clock.Now()
	}
	// The cap and streak day is the service's own clock, never the payload
	// timestamp: commit times arrive from the client and a backdated commit
	// must not rewind last_active_date or open a fresh cap window.
	day := utils.DateOf(s.clock.Now())
	points := s.policy.Points(size)

	res := &IngestResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event := models.PushEvent{
			ExternalID:   raw.ExternalID,
			UserID:       user.ID,
			RepoID:       raw.RepoID,
			CommitSHA:    raw.CommitSHA,
			LinesChanged: size,
			CommitCount:  raw.CommitCount,
			Points:       points,
			OccurredAt:   occurred,
		}

		// The unique index on external_id is the at-most-once gate: a
		// conflicting insert affects zero rows and the whole attempt becomes
		// a no-op.
		created := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).Create(&event)
		if created.Error != nil {
			return created.Error
		}
		if created.RowsAffected == 0 {
			res.Duplicate = true
			return nil
		}

		ordinal, counted, err := s.applyDailyCap(tx, user.ID, day)
		if err != nil {
			return err
		}

		// Over-cap events keep their computed points but are never credited.
		event.DayOrdinal = ordinal
		event.Counted = counted
		if err := tx.Model(&models.PushEvent{}).Where("id = ?", event.ID).
			Updates(map[string]interface{}{"day_ordinal": ordinal, "counted": counted}).Error; err != nil {
			return err
		}

		if counted {
			if err := s.creditEvent(tx, user.ID, day, points); err != nil {
				return err
			}
			res.StreakBonus = s.maybeAdvanceStreak(tx, user.ID, day)
		}

		res.Accepted = true
		res.Event = &event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// resolveSize returns the size metric, enriching unknown sizes via the commit
// API with a bounded timeout. A failed lookup degrades to the minimum size
// rather than blocking ingestion.
func (s *IngestService) resolveSize(ctx context.Context, raw *RawEvent) int {
	if raw.LinesChanged >= 0 {
		return raw.LinesChanged
	}
	if s.enricher == nil || raw.RepoFullName == "" || raw.CommitSHA == "" {
		return 0
	}
	lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	stats, err := s.enricher.FetchCommitStats(lookupCtx, raw.RepoFullName, raw.CommitSHA)
	if err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("commit stats lookup failed repo=%s sha=%s err=%v; using minimum size",
				raw.RepoFullName, raw.CommitSHA, err)
		}
		return 0
	}
	return stats.Additions + stats.Deletions
}

// resolveUser finds or creates the user for the event's external identity.
func (s *IngestService) resolveUser(ctx context.Context, raw RawEvent) (*models.User, error) {
	var user models.User
	db := s.db.WithContext(ctx)

	err := db.Where("github_id = ?", raw.GithubID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		GithubID:  raw.GithubID,
		Username:  raw.Username,
		AvatarURL: raw.AvatarURL,
	}
	// Two concurrent first-ever events for the same identity race on this
	// insert; the loser re-reads the winner's row.
	created := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "github_id"}},
		DoNothing: true,
	}).Create(&user)
	if created.Error != nil {
		return nil, created.Error
	}
	if created.RowsAffected == 0 {
		if err := db.Where("github_id = ?", raw.GithubID).First(&user).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// applyDailyCap increments the durable per-user-per-day counter and returns
// this event's gapless ordinal plus the cap decision. The UPDATE takes the
// row lock, so concurrent events for the same user serialize here and no two
// observe the same pre-increment value.
func (s *IngestService) applyDailyCap(tx *gorm.DB, userID uint, day time.Time) (int, bool, error) {
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoNothing: true,
	}).Create(&models.DailySummary{UserID: userID, Date: day}).Error; err != nil {
		return 0, false, err
	}

	if err := tx.Model(&models.DailySummary{}).
		Where("user_id = ? AND date = ?", userID, day).
		UpdateColumn("total_events", gorm.Expr("total_events + 1")).Error; err != nil {
		return 0, false, err
	}

	var summary models.DailySummary
	if err := tx.Where("user_id = ? AND date = ?", userID, day).First(&summary).Error; err != nil {
		return 0, false, err
	}

	ordinal := summary.TotalEvents
	return ordinal, scoring.ShouldCount(ordinal, s.maxDaily), nil
}

// creditEvent adds a counted event's points to the daily rollup and both user
// totals through atomic increments, and touches the ranking tie-break.
func (s *IngestService) creditEvent(tx *gorm.DB, userID uint, day time.Time, points int) error {
	if err := tx.Model(&models.DailySummary{}).
		Where("user_id = ? AND date = ?", userID, day).
		UpdateColumns(map[string]interface{}{
			"counted_events": gorm.Expr("counted_events + 1"),
			"points_earned":  gorm.Expr("points_earned + ?", points),
			"updated_at":     time.Now(),
		}).Error; err != nil {
		return err
	}

	return tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"lifetime_points":  gorm.Expr("lifetime_points + ?", points),
			"period_points":    gorm.Expr("period_points + ?", points),
			"score_updated_at": s.clock.Now(),
		}).Error
}

// maybeAdvanceStreak runs the streak transition when this is the first
// counted event of the user's day. Streak failures are recoverable: the
// event's own points stand and only the bonus is skipped.
func (s *IngestService) maybeAdvanceStreak(tx *gorm.DB, userID uint, day time.Time) int {
	var summary models.DailySummary
	if err := tx.Where("user_id = ? AND date = ?", userID, day).First(&summary).Error; err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("streak check skipped user=%d: %v", userID, err)
		}
		return 0
	}
	if summary.CountedEvents != 1 {
		return 0
	}

	result, err := s.streaks.Advance(tx, userID, day)
	if err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("streak bonus skipped user=%d: %v", userID, err)
		}
		return 0
	}
	return result.BonusPoints
}
