package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/Kaboochy/GitSummit/models"
)

// Entry is one ranked leaderboard row. Ranks are 1-based and dense.
type Entry struct {
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	Score     int    `json:"score"`
	Rank      int    `json:"rank"`
}

// MemberResolver yields the user ids a scope ranks over. A nil resolver means
// the global scope (all users). Global, friends, and group leaderboards are
// the same ranking over three different member sets.
type MemberResolver func(ctx context.Context) ([]uint, error)

// LeaderboardService answers read-side ranking queries over current period
// totals.
type LeaderboardService struct {
	db *gorm.DB
}

// NewLeaderboardService builds a LeaderboardService.
func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{db: db}
}

// Rank returns up to limit entries for the scope, ordered by period score
// descending with score_updated_at ascending as the tie-break, so the ordering
// is deterministic across repeated queries.
func (l *LeaderboardService) Rank(ctx context.Context, resolver MemberResolver, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	q := l.db.WithContext(ctx).Model(&models.User{}).
		Where("period_points > 0").
		Order("period_points DESC, score_updated_at ASC").
		Limit(limit)

	if resolver != nil {
		ids, err := resolver(ctx)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []Entry{}, nil
		}
		q = q.Where("id IN ?", ids)
	}

	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}

	entries := make([]Entry, len(users))
	for i, u := range users {
		entries[i] = Entry{
			UserID:    u.ID,
			Username:  u.Username,
			AvatarURL: u.AvatarURL,
			Score:     u.PeriodPoints,
			Rank:      i + 1,
		}
	}
	return entries, nil
}

// GroupResolver ranks only the group's members.
func (l *LeaderboardService) GroupResolver(groupID string) MemberResolver {
	return func(ctx context.Context) ([]uint, error) {
		var ids []uint
		err := l.db.WithContext(ctx).Model(&models.GroupMember{}).
			Where("group_id = ?", groupID).
			Pluck("user_id", &ids).Error
		return ids, err
	}
}

// FriendsResolver ranks a user's mutual-follow network, including the user.
func (l *LeaderboardService) FriendsResolver(userID uint) MemberResolver {
	return func(ctx context.Context) ([]uint, error) {
		ids, err := mutualFriendIDs(l.db.WithContext(ctx), userID)
		if err != nil {
			return nil, err
		}
		return append(ids, userID), nil
	}
}

// mutualFriendIDs returns users connected to userID by follow edges in both
// directions.
func mutualFriendIDs(db *gorm.DB, userID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&models.Friendship{}).
		Where("user_id = ?", userID).
		Where("friend_user_id IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Friendship{}).
			Select("user_id").
			Where("friend_user_id = ?", userID)).
		Pluck("friend_user_id", &ids).Error
	return ids, err
}
