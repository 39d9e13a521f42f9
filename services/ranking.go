package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Kaboochy/GitSummit/models"
	"github.com/Kaboochy/GitSummit/utils"
)

// ResetSummary reports what one period-close run did. Partial subset failures
// are counted, not fatal.
type ResetSummary struct {
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	UsersProcessed  int       `json:"users_processed"`
	TrophiesAwarded int       `json:"trophies_awarded"`
	SubsetFailures  int       `json:"subset_failures"`
}

// RankingService runs the periodic ranking job: compute standings, award
// trophies, persist snapshots, then reset period counters. The job does not
// assume exclusivity; trophy and snapshot uniqueness make a double invocation
// for the same period harmless.
type RankingService struct {
	db    *gorm.DB
	clock utils.Clock
}

// NewRankingService builds a RankingService.
func NewRankingService(db *gorm.DB, clock utils.Clock) *RankingService {
	return &RankingService{db: db, clock: clock}
}

// RunPeriodReset closes the current period. Ordering is mandatory: trophies
// and snapshots are durably recorded before any counter is reset, because the
// reset destroys the data the awards are computed from.
func (r *RankingService) RunPeriodReset(ctx context.Context) (*ResetSummary, error) {
	periodEnd := utils.DateOf(r.clock.Now())
	periodStart := periodEnd.AddDate(0, 0, -7)
	summary := &ResetSummary{PeriodStart: periodStart, PeriodEnd: periodEnd}

	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("period_points > 0").
		Order("period_points DESC, score_updated_at ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load ranked users: %w", err)
	}
	if len(users) == 0 {
		utils.Sugar.Info("period reset: no users with scores, nothing to do")
		return summary, nil
	}
	summary.UsersProcessed = len(users)

	// Global trophies must land; a failure here aborts before anything is
	// reset so the run can simply be retried.
	awarded, err := r.awardTop3(ctx, users, models.ScopeGlobal, "", periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("award global trophies: %w", err)
	}
	summary.TrophiesAwarded += awarded

	summary.TrophiesAwarded += r.awardFriendScopes(ctx, users, periodStart, periodEnd, summary)
	summary.TrophiesAwarded += r.awardGroupScopes(ctx, users, periodStart, periodEnd, summary)

	if err := r.writeSnapshots(ctx, users, periodStart, periodEnd); err != nil {
		return nil, fmt.Errorf("write snapshots: %w", err)
	}

	// Single point where period boundaries are enforced.
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("period_points <> 0").
		UpdateColumn("period_points", 0).Error; err != nil {
		return nil, fmt.Errorf("reset period points: %w", err)
	}

	utils.Sugar.Infof("period reset complete: users=%d trophies=%d failures=%d",
		summary.UsersProcessed, summary.TrophiesAwarded, summary.SubsetFailures)
	return summary, nil
}

// awardTop3 inserts trophies for the first three entries of an already-ordered
// user slice. The conflict-ignoring insert keeps re-runs from duplicating.
func (r *RankingService) awardTop3(ctx context.Context, ordered []models.User, scope, scopeRef string, periodStart, periodEnd time.Time) (int, error) {
	awarded := 0
	for i, u := range ordered {
		if i >= 3 {
			break
		}
		rank := i + 1
		res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Trophy{
				UserID:      u.ID,
				Scope:       scope,
				ScopeRef:    scopeRef,
				PeriodStart: periodStart,
				PeriodEnd:   periodEnd,
				Rank:        rank,
				Tier:        models.TierForRank(rank),
				Score:       u.PeriodPoints,
			})
		if res.Error != nil {
			return awarded, res.Error
		}
		awarded += int(res.RowsAffected)
	}
	return awarded, nil
}

// awardFriendScopes recomputes the restricted ranking for every user's mutual
// network. One bad network logs and moves on; it never blocks the cycle for
// everyone else.
func (r *RankingService) awardFriendScopes(ctx context.Context, ordered []models.User, periodStart, periodEnd time.Time, summary *ResetSummary) int {
	awarded := 0
	for _, owner := range ordered {
		ids, err := mutualFriendIDs(r.db.WithContext(ctx), owner.ID)
		if err != nil {
			utils.Sugar.Warnf("friends scope user=%d failed: %v", owner.ID, err)
			summary.SubsetFailures++
			continue
		}
		if len(ids) == 0 {
			continue
		}
		members := toIDSet(append(ids, owner.ID))
		subset := filterOrdered(ordered, members)

		n, err := r.awardTop3(ctx, subset, models.ScopeFriends,
			strconv.FormatUint(uint64(owner.ID), 10), periodStart, periodEnd)
		awarded += n
		if err != nil {
			utils.Sugar.Warnf("friends trophies user=%d failed: %v", owner.ID, err)
			summary.SubsetFailures++
		}
	}
	return awarded
}

// awardGroupScopes does the same for every group's membership.
func (r *RankingService) awardGroupScopes(ctx context.Context, ordered []models.User, periodStart, periodEnd time.Time, summary *ResetSummary) int {
	var groups []models.Group
	if err := r.db.WithContext(ctx).Find(&groups).Error; err != nil {
		utils.Sugar.Warnf("load groups failed: %v", err)
		summary.SubsetFailures++
		return 0
	}

	awarded := 0
	for _, g := range groups {
		var ids []uint
		if err := r.db.WithContext(ctx).Model(&models.GroupMember{}).
			Where("group_id = ?", g.ID).
			Pluck("user_id", &ids).Error; err != nil {
			utils.Sugar.Warnf("group scope group=%s failed: %v", g.ID, err)
			summary.SubsetFailures++
			continue
		}
		subset := filterOrdered(ordered, toIDSet(ids))
		if len(subset) == 0 {
			continue
		}

		n, err := r.awardTop3(ctx, subset, models.ScopeGroup, g.ID, periodStart, periodEnd)
		awarded += n
		if err != nil {
			utils.Sugar.Warnf("group trophies group=%s failed: %v", g.ID, err)
			summary.SubsetFailures++
		}
	}
	return awarded
}

// writeSnapshots persists one audit row per ranked user. The unique index
// keeps a concurrent or repeated run from duplicating the trail.
func (r *RankingService) writeSnapshots(ctx context.Context, ordered []models.User, periodStart, periodEnd time.Time) error {
	snapshots := make([]models.Snapshot, len(ordered))
	for i, u := range ordered {
		snapshots[i] = models.Snapshot{
			UserID:      u.ID,
			Scope:       models.ScopeGlobal,
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			Rank:        i + 1,
			Score:       u.PeriodPoints,
		}
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(snapshots, 200).Error
}

func toIDSet(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// filterOrdered keeps only members, preserving the global ordering so subset
// rankings inherit the same tie-break.
func filterOrdered(ordered []models.User, members map[uint]struct{}) []models.User {
	out := make([]models.User, 0, len(members))
	for _, u := range ordered {
		if _, ok := members[u.ID]; ok {
			out = append(out, u)
		}
	}
	return out
}
