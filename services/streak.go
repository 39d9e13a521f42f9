package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Kaboochy/GitSummit/models"
	"github.com/Kaboochy/GitSummit/utils"
)

// StreakResult reports one streak transition.
type StreakResult struct {
	CurrentStreak int    `json:"current_streak"`
	BonusPoints   int    `json:"bonus_points"`
	Milestone     string `json:"milestone"`
	NewStreakDay  bool   `json:"new_streak_day"`
}

// StreakService advances per-user consecutive-day streaks and awards bonuses
// through the append-only StreakBonus log.
type StreakService struct {
	// milestones maps exact streak lengths to their extra bonus.
	milestones map[int]int
}

// NewStreakService builds a StreakService with the configured milestone table.
func NewStreakService(milestones map[int]int) *StreakService {
	if milestones == nil {
		milestones = map[int]int{7: 5, 30: 10, 90: 20, 365: 50}
	}
	return &StreakService{milestones: milestones}
}

// Advance applies the streak state machine for the given UTC day inside the
// caller's transaction. Same day is a no-op; a one-day gap extends the streak;
// anything longer, or first-ever activity, resets it to 1. Every new active
// day earns the base bonus, plus the milestone extra exactly on the day the
// threshold is first reached.
func (s *StreakService) Advance(tx *gorm.DB, userID uint, day time.Time) (*StreakResult, error) {
	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}

	day = utils.DateOf(day)
	if user.LastActiveDate != nil && utils.DateOf(*user.LastActiveDate).Equal(day) {
		// Already credited today.
		return &StreakResult{CurrentStreak: user.CurrentStreak}, nil
	}

	newStreak := 1
	if user.LastActiveDate != nil && utils.DaysBetween(*user.LastActiveDate, day) == 1 {
		newStreak = user.CurrentStreak + 1
	}

	bonus := 1
	milestone := "daily"
	if extra, ok := s.milestones[newStreak]; ok {
		bonus += extra
		milestone = milestoneName(newStreak)
	}

	longest := user.LongestStreak
	if newStreak > longest {
		longest = newStreak
	}

	if err := tx.Create(&models.StreakBonus{
		UserID:      userID,
		StreakDay:   newStreak,
		BonusPoints: bonus,
		Milestone:   milestone,
	}).Error; err != nil {
		return nil, fmt.Errorf("log streak bonus: %w", err)
	}

	if err := tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"current_streak":   newStreak,
			"longest_streak":   longest,
			"last_active_date": day,
			"lifetime_points":  gorm.Expr("lifetime_points + ?", bonus),
			"period_points":    gorm.Expr("period_points + ?", bonus),
		}).Error; err != nil {
		return nil, fmt.Errorf("apply streak bonus: %w", err)
	}

	return &StreakResult{
		CurrentStreak: newStreak,
		BonusPoints:   bonus,
		Milestone:     milestone,
		NewStreakDay:  true,
	}, nil
}

func milestoneName(days int) string {
	switch days {
	case 7:
		return "weekly"
	case 30:
		return "monthly"
	case 90:
		return "quarterly"
	case 365:
		return "yearly"
	default:
		return "milestone"
	}
}
