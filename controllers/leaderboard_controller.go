package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kaboochy/GitSummit/config"
	"github.com/Kaboochy/GitSummit/services"
	"github.com/Kaboochy/GitSummit/utils"
)

// LeaderboardController serves ranked views over current period totals.
type LeaderboardController struct {
	leaderboard *services.LeaderboardService
}

// NewLeaderboardController creates a new controller instance.
func NewLeaderboardController(leaderboard *services.LeaderboardService) *LeaderboardController {
	return &LeaderboardController{leaderboard: leaderboard}
}

// Global returns the global leaderboard.
func (l *LeaderboardController) Global(ctx *gin.Context) {
	l.serve(ctx, "leaderboard:global", nil)
}

// Group returns the leaderboard restricted to one group's members.
func (l *LeaderboardController) Group(ctx *gin.Context) {
	groupID := ctx.Param("id")
	l.serve(ctx, "leaderboard:group:"+groupID, l.leaderboard.GroupResolver(groupID))
}

// Friends returns the leaderboard over a user's mutual-follow network.
func (l *LeaderboardController) Friends(ctx *gin.Context) {
	userID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid user id")
		return
	}
	l.serve(ctx, fmt.Sprintf("leaderboard:friends:%d", userID),
		l.leaderboard.FriendsResolver(uint(userID)))
}

func (l *LeaderboardController) serve(ctx *gin.Context, cacheKeyBase string, resolver services.MemberResolver) {
	limit := config.Get().LeaderboardLimit
	if raw := ctx.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	cacheKey := fmt.Sprintf("%s:%d", cacheKeyBase, limit)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	entries, err := l.leaderboard.Rank(ctx.Request.Context(), resolver, limit)
	if err != nil {
		// An explicit error, distinguishable from an empty leaderboard.
		utils.Error(ctx, http.StatusInternalServerError, 50040, "leaderboard query failed")
		return
	}

	utils.Success(ctx, gin.H{"leaderboard": entries})
	utils.CacheSetJSON(cacheKey, utils.JSONResponse{
		Code:    0,
		Message: "success",
		Data:    gin.H{"leaderboard": entries},
	}, 30*time.Second)
}
