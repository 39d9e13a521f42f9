package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Kaboochy/GitSummit/config"
	"github.com/Kaboochy/GitSummit/controllers"
	"github.com/Kaboochy/GitSummit/middleware"
	"github.com/Kaboochy/GitSummit/services"
	"github.com/Kaboochy/GitSummit/utils"
)

// Services bundles the engine pieces the router wires to controllers.
type Services struct {
	Ingest      *services.IngestService
	Sync        *services.SyncService
	Ranking     *services.RankingService
	Leaderboard *services.LeaderboardService
	Groups      *services.GroupService
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, svc Services) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(utils.RequestLogger())
	r.Use(utils.Recovery())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	webhookController := controllers.NewWebhookController(svc.Ingest)
	cronController := controllers.NewCronController(svc.Sync, svc.Ranking)
	leaderboardController := controllers.NewLeaderboardController(svc.Leaderboard)
	groupController := controllers.NewGroupController(svc.Groups)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	// Inbound event sources. The webhook authenticates by body signature, the
	// cron triggers by shared secret; neither uses user sessions.
	api.POST("/webhook/github", webhookController.HandleGithub)

	cronGroup := api.Group("/cron")
	cronGroup.Use(middleware.CronAuth())
	cronGroup.GET("/sync", cronController.SyncAll)
	cronGroup.POST("/sync", cronController.SyncAll)
	cronGroup.GET("/weekly-reset", cronController.WeeklyReset)
	cronGroup.POST("/weekly-reset", cronController.WeeklyReset)

	// Public reads.
	public := api.Group("")
	public.Use(middleware.RateLimitMiddleware())
	public.GET("/leaderboard", leaderboardController.Global)
	public.GET("/leaderboard/friends/:id", leaderboardController.Friends)
	public.GET("/leaderboard/group/:id", leaderboardController.Group)
	public.GET("/users/:username/stats", statsController.GetUserStats)
	public.GET("/groups/:id/members", groupController.Members)

	// Group management, called by the trusted web frontend.
	public.POST("/groups", groupController.Create)
	public.POST("/groups/join", groupController.Join)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
