// Package scheduler drives the periodic jobs in-process: the poll sync sweep
// and the weekly ranking reset. Both call the same service methods as the
// secret-guarded HTTP triggers; ingestion dedup and trophy uniqueness make an
// overlap between the two trigger paths harmless.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/Kaboochy/GitSummit/config"
	"github.com/Kaboochy/GitSummit/services"
	"github.com/Kaboochy/GitSummit/utils"
)

// Scheduler owns the cron runner.
type Scheduler struct {
	cron    *cron.Cron
	sync    *services.SyncService
	ranking *services.RankingService
}

// New builds a Scheduler around the sync and ranking services.
func New(sync *services.SyncService, ranking *services.RankingService) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		sync:    sync,
		ranking: ranking,
	}
}

// Start registers the jobs from configuration and starts the runner.
func (s *Scheduler) Start() error {
	cfg := config.Get()

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", cfg.SyncIntervalMinutes), s.runSync); err != nil {
		return fmt.Errorf("schedule sync: %w", err)
	}
	if _, err := s.cron.AddFunc(cfg.WeeklyResetCron, s.runWeeklyReset); err != nil {
		return fmt.Errorf("schedule weekly reset: %w", err)
	}

	s.cron.Start()
	utils.Sugar.Infof("scheduler started: sync every %dm, reset at %q",
		cfg.SyncIntervalMinutes, cfg.WeeklyResetCron)
	return nil
}

// Stop halts the runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	utils.Sugar.Info("scheduler stopped")
}

func (s *Scheduler) runSync() {
	summary, err := s.sync.SyncAll(context.Background())
	if err != nil {
		utils.Sugar.Errorf("scheduled sync failed: %v", err)
		return
	}
	if summary.NewEvents > 0 {
		utils.InvalidateByPrefix("leaderboard:")
		utils.Sugar.Infof("scheduled sync: users=%d new_events=%d failures=%d",
			summary.UsersProcessed, summary.NewEvents, summary.Failures)
	}
}

func (s *Scheduler) runWeeklyReset() {
	summary, err := s.ranking.RunPeriodReset(context.Background())
	if err != nil {
		utils.Sugar.Errorf("scheduled weekly reset failed: %v", err)
		return
	}
	utils.InvalidateByPrefix("leaderboard:")
	utils.Sugar.Infof("scheduled weekly reset: users=%d trophies=%d",
		summary.UsersProcessed, summary.TrophiesAwarded)
}
