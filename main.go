package main

import (
	"github.com/Kaboochy/GitSummit/config"
	"github.com/Kaboochy/GitSummit/github"
	"github.com/Kaboochy/GitSummit/models"
	"github.com/Kaboochy/GitSummit/routes"
	"github.com/Kaboochy/GitSummit/scheduler"
	"github.com/Kaboochy/GitSummit/scoring"
	"github.com/Kaboochy/GitSummit/services"
	"github.com/Kaboochy/GitSummit/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.PushEvent{},
		&models.DailySummary{},
		&models.StreakBonus{},
		&models.Snapshot{},
		&models.Trophy{},
		&models.Group{},
		&models.GroupMember{},
		&models.LinkedRepo{},
		&models.Friendship{},
	)

	clock := utils.SystemClock()
	gh := github.NewClient(cfg.GithubAPIBase, cfg.GithubToken)
	policy := scoring.PolicyByName(cfg.ScoringMode)

	streaks := services.NewStreakService(cfg.StreakMilestones)
	ingest := services.NewIngestService(db, policy, cfg.MaxDailyCounted, clock, gh, streaks)
	sync := services.NewSyncService(db, gh, ingest, clock)
	ranking := services.NewRankingService(db, clock)

	svc := routes.Services{
		Ingest:      ingest,
		Sync:        sync,
		Ranking:     ranking,
		Leaderboard: services.NewLeaderboardService(db),
		Groups:      services.NewGroupService(db),
	}

	r := routes.SetupRouter(db, svc)

	sched := scheduler.New(sync, ranking)
	if err := sched.Start(); err != nil {
		utils.Sugar.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	utils.Sugar.Infof("Starting server on port %s (scoring=%s, daily cap=%d)",
		cfg.AppPort, policy.Name(), cfg.MaxDailyCounted)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
