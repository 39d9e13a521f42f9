package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Kaboochy/GitSummit/models"
	"github.com/Kaboochy/GitSummit/utils"
)

// StatsController serves per-user score and streak statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetUserStats returns a user's point totals, streaks, trophies, and recent
// daily activity.
func (s *StatsController) GetUserStats(ctx *gin.Context) {
	username := ctx.Param("username")

	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load user")
		return
	}

	var trophies []models.Trophy
	if err := s.db.Where("user_id = ?", user.ID).
		Order("period_start DESC").
		Limit(50).
		Find(&trophies).Error; err != nil {
		// Trophies are decorative here; the stats payload still stands.
		trophies = nil
	}

	since := time.Now().UTC().AddDate(0, 0, -30)
	var recent []models.DailySummary
	if err := s.db.Where("user_id = ? AND date >= ?", user.ID, since).
		Order("date DESC").
		Find(&recent).Error; err != nil {
		recent = nil
	}

	utils.Success(ctx, gin.H{
		"username":         user.Username,
		"avatar_url":       user.AvatarURL,
		"lifetime_points":  user.LifetimePoints,
		"period_points":    user.PeriodPoints,
		"current_streak":   user.CurrentStreak,
		"longest_streak":   user.LongestStreak,
		"last_active_date": user.LastActiveDate,
		"trophies":         trophies,
		"recent_days":      recent,
	})
}
