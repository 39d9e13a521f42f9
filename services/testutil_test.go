package services

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Kaboochy/GitSummit/models"
	"github.com/Kaboochy/GitSummit/scoring"
	"github.com/Kaboochy/GitSummit/utils"
)

func init() {
	utils.Logger = zap.NewNop()
	utils.Sugar = utils.Logger.Sugar()
}

// fakeClock pins "now" so date-boundary logic is deterministic.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	// A second pooled connection would see a different :memory: database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
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
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newIngest(db *gorm.DB, clock utils.Clock) *IngestService {
	streaks := NewStreakService(nil)
	return NewIngestService(db, scoring.TieredPolicy{}, 5, clock, nil, streaks)
}

func utcDay(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func mustUser(t *testing.T, db *gorm.DB, id uint) models.User {
	t.Helper()
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		t.Fatalf("load user %d: %v", id, err)
	}
	return user
}
