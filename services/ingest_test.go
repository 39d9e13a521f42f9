package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Kaboochy/GitSummit/github"
	"github.com/Kaboochy/GitSummit/models"
	"github.com/Kaboochy/GitSummit/scoring"
	"github.com/Kaboochy/GitSummit/utils"
)

func TestIngestCreatesUserAndEvent(t *testing.T) {
	db := newTestDB(t)
	clock := &fakeClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	ingest := newIngest(db, clock)

	res, err := ingest.Ingest(context.Background(), RawEvent{
		ExternalID:   "sha-1",
		GithubID:     42,
		Username:     "octocat",
		LinesChanged: 5,
		OccurredAt:   clock.now,
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !res.Accepted || res.Duplicate {
		t.Fatalf("expected accepted new event, got %+v", res)
	}
	if res.Event.Points != 1 {
		t.Errorf("5 lines should score 1 point, got %d", res.Event.Points)
	}
	if !res.Event.Counted || res.Event.DayOrdinal != 1 {
		t.Errorf("first event of the day should be counted with ordinal 1, got %+v", res.Event)
	}

	user := mustUser(t, db, res.Event.UserID)
	// 1 event point + 1 streak base bonus for the first active day.
	if user.LifetimePoints != 2 || user.PeriodPoints != 2 {
		t.Errorf("totals = (%d, %d), want (2, 2)", user.LifetimePoints, user.PeriodPoints)
	}
	if user.CurrentStreak != 1 {
		t.Errorf("current streak = %d, want 1", user.CurrentStreak)
	}
}

func TestIngestRejectsInvalidEvent(t *testing.T) {
	db := newTestDB(t)
	ingest := newIngest(db, &fakeClock{now: utcDay(2024, 3, 15)})

	if _, err := ingest.Ingest(context.Background(), RawEvent{GithubID: 42}); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("missing external id: got %v, want ErrInvalidEvent", err)
	}
	if _, err := ingest.Ingest(context.Background(), RawEvent{ExternalID: "x"}); !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("missing identity: got %v, want ErrInvalidEvent", err)
	}
}

func TestIngestIdempotent(t *testing.T) {
	db := newTestDB(t)
	clock := &fakeClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	ingest := newIngest(db, clock)

	raw := RawEvent{
		ExternalID:   "sha-dup",
		GithubID:     42,
		Username:     "octocat",
		LinesChanged: 60,
		OccurredAt:   clock.now,
	}
	first, err := ingest.Ingest(context.Background(), raw)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if !first.Accepted {
		t.Fatal("first ingest should be accepted")
	}

	// Redelivery with a different payload but the same id must still no-op.
	raw.LinesChanged = 400
	second, err := ingest.Ingest(context.Background(), raw)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.Accepted || !second.Duplicate {
		t.Fatalf("expected duplicate no-op, got %+v", second)
	}

	var count int64
	db.Model(&models.PushEvent{}).Where("external_id = ?", "sha-dup").Count(&count)
	if count != 1 {
		t.Errorf("event rows = %d, want exactly 1", count)
	}

	user := mustUser(t, db, first.Event.UserID)
	// 3 points for 60 lines + 1 streak base; no second credit.
	if user.LifetimePoints != 4 {
		t.Errorf("lifetime points = %d, want 4", user.LifetimePoints)
	}
}

// Six commits in one UTC day sized [5,15,60,200,400,5]
// score [1,2,3,4,5,1], only the first 5 count, so 15 event points credit and
// the 6th is stored uncounted.
func TestIngestDailyCapScenario(t *testing.T) {
	db := newTestDB(t)
	clock := &fakeClock{now: time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)}
	ingest := newIngest(db, clock)

	sizes := []int{5, 15, 60, 200, 400, 5}
	wantPoints := []int{1, 2, 3, 4, 5, 1}
	wantCounted := []bool{true, true, true, true, true, false}

	var userID uint
	for i, size := range sizes {
		res, err := ingest.Ingest(context.Background(), RawEvent{
			ExternalID:   fmt.Sprintf("sha-%d", i),
			GithubID:     42,
			Username:     "octocat",
			LinesChanged: size,
			OccurredAt:   clock.now.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
		if !res.Accepted {
			t.Fatalf("ingest %d not accepted", i)
		}
		if res.Event.Points != wantPoints[i] {
			t.Errorf("event %d points = %d, want %d", i, res.Event.Points, wantPoints[i])
		}
		if res.Event.Counted != wantCounted[i] {
			t.Errorf("event %d counted = %v, want %v", i, res.Event.Counted, wantCounted[i])
		}
		if res.Event.DayOrdinal != i+1 {
			t.Errorf("event %d ordinal = %d, want %d (gapless)", i, res.Event.DayOrdinal, i+1)
		}
		userID = res.Event.UserID
	}

	var summary models.DailySummary
	if err := db.Where("user_id = ?", userID).First(&summary).Error; err != nil {
		t.Fatalf("load summary: %v", err)
	}
	if summary.TotalEvents != 6 {
		t.Errorf("total events = %d, want 6", summary.TotalEvents)
	}
	if summary.CountedEvents != 5 {
		t.Errorf("counted events = %d, want 5", summary.CountedEvents)
	}
	if summary.PointsEarned != 15 {
		t.Errorf("points earned = %d, want 15", summary.PointsEarned)
	}

	user := mustUser(t, db, userID)
	// 15 event points + 1 streak base bonus.
	if user.LifetimePoints != 16 {
		t.Errorf("lifetime points = %d, want 16", user.LifetimePoints)
	}
}

func TestIngestFlatPolicyUnlimitedFeel(t *testing.T) {
	db := newTestDB(t)
	clock := &fakeClock{now: time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)}
	// Flat scoring with a high cap mirrors the one-point-per-push variant.
	streaks := NewStreakService(nil)
	ingest := NewIngestService(db, scoring.FlatPolicy{}, 1000, clock, nil, streaks)

	for i := 0; i < 8; i++ {
		res, err := ingest.Ingest(context.Background(), RawEvent{
			ExternalID:   fmt.Sprintf("push-%d", i),
			GithubID:     7,
			Username:     "hubot",
			LinesChanged: i * 100,
			OccurredAt:   clock.now,
		})
		if err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
		if res.Event.Points != 1 || !res.Event.Counted {
			t.Errorf("event %d: points=%d counted=%v, want 1/true", i, res.Event.Points, res.Event.Counted)
		}
	}
}

type failingEnricher struct{}

func (failingEnricher) FetchCommitStats(ctx context.Context, repo, sha string) (*github.CommitStats, error) {
	return nil, errors.New("api unavailable")
}

type fixedEnricher struct{ stats github.CommitStats }

func (f fixedEnricher) FetchCommitStats(ctx context.Context, repo, sha string) (*github.CommitStats, error) {
	return &f.stats, nil
}

func TestIngestEnrichmentFallback(t *testing.T) {
	db := newTestDB(t)
	clock := &fakeClock{now: utcDay(2024, 3, 15)}
	streaks := NewStreakService(nil)
	ingest := NewIngestService(db, scoring.TieredPolicy{}, 5, clock, failingEnricher{}, streaks)

	res, err := ingest.Ingest(context.Background(), RawEvent{
		ExternalID:   "sha-enrich-fail",
		GithubID:     42,
		Username:     "octocat",
		RepoFullName: "octocat/hello",
		CommitSHA:    "sha-enrich-fail",
		LinesChanged: -1,
		OccurredAt:   clock.now,
	})
	if err != nil {
		t.Fatalf("ingest with failing enricher must not error: %v", err)
	}
	// Degraded to minimum size: tier 1.
	if res.Event.Points != 1 {
		t.Errorf("points = %d, want 1 (minimum-size fallback)", res.Event.Points)
	}
}

func TestIngestEnrichmentApplied(t *testing.T) {
	db := newTestDB(t)
	clock := &fakeClock{now: utcDay(2024, 3, 15)}
	streaks := NewStreakService(nil)
	enricher := fixedEnricher{stats: github.CommitStats{Additions: 120, Deletions: 60}}
	ingest := NewIngestService(db, scoring.TieredPolicy{}, 5, clock, enricher, streaks)

	res, err := ingest.Ingest(context.Background(), RawEvent{
		ExternalID:   "sha-enriched",
		GithubID:     42,
		Username:     "octocat",
		RepoFullName: "octocat/hello",
		CommitSHA:    "sha-enriched",
		LinesChanged: -1,
		OccurredAt:   clock.now,
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	// 180 lines changed lands in the 4-point tier.
	if res.Event.LinesChanged != 180 || res.Event.Points != 4 {
		t.Errorf("got lines=%d points=%d, want 180/4", res.Event.LinesChanged, res.Event.Points)
	}
}

// The cap and streak day must come from the service clock; OccurredAt is the
// sender's commit timestamp and cannot be trusted for date-boundary logic.
func TestIngestBackdatedEventCannotRewindStreak(t *testing.T) {
	db := newTestDB(t)
	clock := &fakeClock{now: time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)}
	ingest := newIngest(db, clock)

	var userID uint
	for i := 0; i < 3; i++ {
		clock.now = time.Date(2024, 6, 8+i, 12, 0, 0, 0, time.UTC)
		res, err := ingest.Ingest(context.Background(), RawEvent{
			ExternalID:   fmt.Sprintf("live-%d", i),
			GithubID:     42,
			Username:     "octocat",
			LinesChanged: 5,
			OccurredAt:   clock.now,
		})
		if err != nil {
			t.Fatalf("ingest day %d: %v", i, err)
		}
		userID = res.Event.UserID
	}

	before := mustUser(t, db, userID)
	if before.CurrentStreak != 3 {
		t.Fatalf("streak before = %d, want 3", before.CurrentStreak)
	}

	// A commit timestamped nine days ago, delivered today.
	res, err := ingest.Ingest(context.Background(), RawEvent{
		ExternalID:   "backdated",
		GithubID:     42,
		Username:     "octocat",
		LinesChanged: 5,
		OccurredAt:   clock.now.AddDate(0, 0, -9),
	})
	if err != nil {
		t.Fatalf("ingest backdated: %v", err)
	}
	if !res.Accepted {
		t.Fatal("backdated event should still be stored")
	}
	// It lands in today's cap window, not a window of its own.
	if res.Event.DayOrdinal != 2 {
		t.Errorf("backdated ordinal = %d, want 2 (today's second event)", res.Event.DayOrdinal)
	}

	after := mustUser(t, db, userID)
	if after.CurrentStreak != 3 {
		t.Errorf("streak after = %d, want 3 (backdated event must not reset)", after.CurrentStreak)
	}
	if after.LastActiveDate == nil || !utils.DateOf(*after.LastActiveDate).Equal(utcDay(2024, time.June, 10)) {
		t.Errorf("last active date = %v, want 2024-06-10", after.LastActiveDate)
	}

	var summary models.DailySummary
	if err := db.Where("user_id = ? AND date = ?", userID, utcDay(2024, time.June, 10)).
		First(&summary).Error; err != nil {
		t.Fatalf("load today's summary: %v", err)
	}
	if summary.TotalEvents != 2 {
		t.Errorf("today's total events = %d, want 2", summary.TotalEvents)
	}
}

type countingEnricher struct{ calls int32 }

func (c *countingEnricher) FetchCommitStats(ctx context.Context, repo, sha string) (*github.CommitStats, error) {
	atomic.AddInt32(&c.calls, 1)
	return &github.CommitStats{Additions: 10, Deletions: 0}, nil
}

func TestIngestDuplicateSkipsEnrichment(t *testing.T) {
	db := newTestDB(t)
	clock := &fakeClock{now: utcDay(2024, 3, 15)}
	streaks := NewStreakService(nil)
	enricher := &countingEnricher{}
	ingest := NewIngestService(db, scoring.TieredPolicy{}, 5, clock, enricher, streaks)

	raw := RawEvent{
		ExternalID:   "sha-once",
		GithubID:     42,
		Username:     "octocat",
		RepoFullName: "octocat/hello",
		CommitSHA:    "sha-once",
		LinesChanged: -1,
		OccurredAt:   clock.now,
	}
	if _, err := ingest.Ingest(context.Background(), raw); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := ingest.Ingest(context.Background(), raw)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.Duplicate {
		t.Fatal("second delivery should be a duplicate")
	}
	if got := atomic.LoadInt32(&enricher.calls); got != 1 {
		t.Errorf("enrichment calls = %d, want 1 (redeliveries must not hit the API)", got)
	}
}

func TestIngestConcurrentEventsGetDistinctOrdinals(t *testing.T) {
	db := newTestDB(t)
	clock := &fakeClock{now: time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)}
	ingest := newIngest(db, clock)

	user := models.User{GithubID: 42, Username: "octocat"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ingest.Ingest(context.Background(), RawEvent{
				ExternalID:   fmt.Sprintf("race-%d", i),
				GithubID:     42,
				Username:     "octocat",
				LinesChanged: 5,
				OccurredAt:   clock.now,
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent ingest: %v", err)
		}
	}

	var events []models.PushEvent
	if err := db.Where("user_id = ?", user.ID).
		Order("day_ordinal ASC").Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != n {
		t.Fatalf("event rows = %d, want %d", len(events), n)
	}
	counted := 0
	for i, ev := range events {
		if ev.DayOrdinal != i+1 {
			t.Fatalf("ordinals not gapless: position %d has ordinal %d", i, ev.DayOrdinal)
		}
		if ev.Counted {
			counted++
			if ev.DayOrdinal > 5 {
				t.Fatalf("ordinal %d counted beyond the cap", ev.DayOrdinal)
			}
		}
	}
	if counted != 5 {
		t.Fatalf("counted events = %d, want 5", counted)
	}
}
