package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Kaboochy/GitSummit/github"
	"github.com/Kaboochy/GitSummit/models"
	"github.com/Kaboochy/GitSummit/utils"
)

// Poller lists a repository's recent events under the given user token; nil
// page means 304 Not Modified.
type Poller interface {
	PollRepoEvents(ctx context.Context, repoFullName, lastETag, token string) (*github.EventsPage, error)
}

// RepoSyncResult reports one repository's poll outcome.
type RepoSyncResult struct {
	RepoName  string `json:"repo_name"`
	NewEvents int    `json:"new_events"`
	Error     string `json:"error,omitempty"`
}

// SyncSummary aggregates a full poll pass.
type SyncSummary struct {
	UsersProcessed int              `json:"users_processed"`
	NewEvents      int              `json:"new_events"`
	Failures       int              `json:"failures"`
	Results        []RepoSyncResult `json:"results,omitempty"`
}

// SyncService pulls push events for linked repositories through conditional
// requests and feeds them into ingestion. Redelivered or overlapping pages are
// safe: ingestion deduplicates by event id.
type SyncService struct {
	db     *gorm.DB
	poller Poller
	ingest *IngestService
	clock  utils.Clock
}

// NewSyncService builds a SyncService.
func NewSyncService(db *gorm.DB, poller Poller, ingest *IngestService, clock utils.Clock) *SyncService {
	return &SyncService{db: db, poller: poller, ingest: ingest, clock: clock}
}

// SyncUser polls every linked repository of one user. Per-repo failures are
// isolated into the result slice.
func (s *SyncService) SyncUser(ctx context.Context, userID uint) ([]RepoSyncResult, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, err
	}

	var repos []models.LinkedRepo
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&repos).Error; err != nil {
		return nil, err
	}

	results := make([]RepoSyncResult, 0, len(repos))
	for _, repo := range repos {
		results = append(results, s.syncRepo(ctx, &user, repo))
	}
	return results, nil
}

func (s *SyncService) syncRepo(ctx context.Context, user *models.User, repo models.LinkedRepo) RepoSyncResult {
	result := RepoSyncResult{RepoName: repo.FullName}

	page, err := s.poller.PollRepoEvents(ctx, repo.FullName, repo.LastETag, user.AccessToken)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	// 304: nothing new, keep the stored tag.
	if page == nil {
		s.touchRepo(ctx, repo.ID, nil)
		return result
	}

	for _, ev := range page.Events {
		raw := RawEvent{
			ExternalID:   ev.ID,
			GithubID:     ev.Actor.ID,
			Username:     ev.Actor.Login,
			RepoID:       repo.ID,
			RepoFullName: repo.FullName,
			CommitSHA:    ev.Payload.Head,
			LinesChanged: -1, // enriched from the head commit when possible
			CommitCount:  ev.Payload.Size,
			OccurredAt:   ev.CreatedAt,
		}
		// The poller watches a user's own repos; attribute events to the
		// repo owner when actor identity is absent from the payload.
		if raw.GithubID == 0 {
			raw.GithubID = user.GithubID
			raw.Username = user.Username
		}

		res, err := s.ingest.Ingest(ctx, raw)
		if err != nil {
			utils.Sugar.Warnf("ingest polled event %s failed: %v", ev.ID, err)
			continue
		}
		if res.Accepted {
			result.NewEvents++
		}
	}

	s.touchRepo(ctx, repo.ID, page)
	return result
}

// touchRepo records the poll instant, and the new entity tag plus recommended
// interval after a 2xx.
func (s *SyncService) touchRepo(ctx context.Context, repoID uint, page *github.EventsPage) {
	updates := map[string]interface{}{
		"last_polled_at": s.clock.Now(),
		"updated_at":     time.Now(),
	}
	if page != nil {
		updates["last_etag"] = page.ETag
		if page.PollInterval > 0 {
			updates["poll_interval"] = page.PollInterval
		}
	}
	if err := s.db.WithContext(ctx).Model(&models.LinkedRepo{}).
		Where("id = ?", repoID).
		Updates(updates).Error; err != nil {
		utils.Sugar.Warnf("update repo %d poll state failed: %v", repoID, err)
	}
}

// SyncAll polls every user that has at least one linked repository, isolating
// per-user failures so one broken token cannot stall the sweep.
func (s *SyncService) SyncAll(ctx context.Context) (*SyncSummary, error) {
	var userIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.LinkedRepo{}).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error; err != nil {
		return nil, err
	}

	summary := &SyncSummary{UsersProcessed: len(userIDs)}
	for _, id := range userIDs {
		results, err := s.SyncUser(ctx, id)
		if err != nil {
			utils.Sugar.Warnf("sync user %d failed: %v", id, err)
			summary.Failures++
			continue
		}
		for _, r := range results {
			summary.NewEvents += r.NewEvents
			if r.Error != "" {
				summary.Failures++
			}
			summary.Results = append(summary.Results, r)
		}
	}
	return summary, nil
}
