package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kaboochy/GitSummit/services"
	"github.com/Kaboochy/GitSummit/utils"
)

// CronController exposes the scheduler-triggered jobs over HTTP. Both routes
// sit behind the shared-secret middleware, not user auth.
type CronController struct {
	sync    *services.SyncService
	ranking *services.RankingService
}

// NewCronController creates a new controller instance.
func NewCronController(sync *services.SyncService, ranking *services.RankingService) *CronController {
	return &CronController{sync: sync, ranking: ranking}
}

// SyncAll polls every user's linked repositories for new push events.
func (c *CronController) SyncAll(ctx *gin.Context) {
	summary, err := c.sync.SyncAll(ctx.Request.Context())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "sync failed")
		return
	}
	if summary.NewEvents > 0 {
		utils.InvalidateByPrefix("leaderboard:")
	}
	utils.Success(ctx, summary)
}

// WeeklyReset runs the period-close ranking job: trophies, snapshots, then
// counter reset. Safe to invoke more than once per period.
func (c *CronController) WeeklyReset(ctx *gin.Context) {
	summary, err := c.ranking.RunPeriodReset(ctx.Request.Context())
	if err != nil {
		utils.Sugar.Errorf("weekly reset failed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50021, "weekly reset failed")
		return
	}
	utils.InvalidateByPrefix("leaderboard:")
	utils.Success(ctx, summary)
}
