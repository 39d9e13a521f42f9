package services

import (
	"context"
	"testing"
	"time"

	"github.com/Kaboochy/GitSummit/models"
)

func TestRankGlobalOrderingAndTieBreak(t *testing.T) {
	db := newTestDB(t)
	top := seedScoredUser(t, db, 1, "top", 50, time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC))
	lateTie := seedScoredUser(t, db, 2, "late-tie", 30, time.Date(2024, 6, 9, 15, 0, 0, 0, time.UTC))
	earlyTie := seedScoredUser(t, db, 3, "early-tie", 30, time.Date(2024, 6, 9, 9, 0, 0, 0, time.UTC))
	seedScoredUser(t, db, 4, "idle", 0, time.Date(2024, 6, 9, 9, 0, 0, 0, time.UTC))

	board := NewLeaderboardService(db)
	entries, err := board.Rank(context.Background(), nil, 100)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}

	// Zero-score users never appear.
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	wantIDs := []uint{top.ID, earlyTie.ID, lateTie.ID}
	for i, want := range wantIDs {
		if entries[i].UserID != want {
			t.Fatalf("position %d: user = %d, want %d", i+1, entries[i].UserID, want)
		}
		if entries[i].Rank != i+1 {
			t.Fatalf("position %d: rank = %d, want %d", i+1, entries[i].Rank, i+1)
		}
	}
}

func TestRankHonorsLimit(t *testing.T) {
	db := newTestDB(t)
	for i := int64(1); i <= 5; i++ {
		seedScoredUser(t, db, i, "user", int(i)*10, time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC))
	}

	board := NewLeaderboardService(db)
	entries, err := board.Rank(context.Background(), nil, 2)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Score != 50 || entries[1].Score != 40 {
		t.Fatalf("scores = %d/%d, want 50/40", entries[0].Score, entries[1].Score)
	}
}

func TestRankGroupScope(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC)
	outsider := seedScoredUser(t, db, 1, "outsider", 99, base)
	owner := seedScoredUser(t, db, 2, "owner", 10, base)
	member := seedScoredUser(t, db, 3, "member", 20, base)

	groups := NewGroupService(db)
	group, err := groups.CreateGroup(context.Background(), "team", owner.ID)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := groups.JoinGroup(context.Background(), group.InviteCode, member.ID); err != nil {
		t.Fatalf("join group: %v", err)
	}

	board := NewLeaderboardService(db)
	entries, err := board.Rank(context.Background(), board.GroupResolver(group.ID), 100)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].UserID != member.ID || entries[1].UserID != owner.ID {
		t.Fatalf("order = %d,%d, want %d,%d", entries[0].UserID, entries[1].UserID, member.ID, owner.ID)
	}
	for _, e := range entries {
		if e.UserID == outsider.ID {
			t.Fatal("outsider appeared on the group leaderboard")
		}
	}
}

func TestRankFriendsScopeRequiresMutualEdges(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC)
	me := seedScoredUser(t, db, 1, "me", 10, base)
	mutual := seedScoredUser(t, db, 2, "mutual", 20, base)
	oneWay := seedScoredUser(t, db, 3, "one-way", 30, base)

	edges := []models.Friendship{
		{UserID: me.ID, FriendUserID: mutual.ID},
		{UserID: mutual.ID, FriendUserID: me.ID},
		// I follow oneWay, who does not follow back.
		{UserID: me.ID, FriendUserID: oneWay.ID},
	}
	for _, e := range edges {
		if err := db.Create(&e).Error; err != nil {
			t.Fatalf("create edge: %v", err)
		}
	}

	board := NewLeaderboardService(db)
	entries, err := board.Rank(context.Background(), board.FriendsResolver(me.ID), 100)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (mutual friend and self)", len(entries))
	}
	if entries[0].UserID != mutual.ID || entries[1].UserID != me.ID {
		t.Fatalf("order = %d,%d, want %d,%d", entries[0].UserID, entries[1].UserID, mutual.ID, me.ID)
	}
}

func TestRankEmptyScopeReturnsEmpty(t *testing.T) {
	db := newTestDB(t)
	seedScoredUser(t, db, 1, "someone", 10, time.Date(2024, 6, 9, 12, 0, 0, 0, time.UTC))

	board := NewLeaderboardService(db)
	entries, err := board.Rank(context.Background(), board.FriendsResolver(999), 100)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(entries))
	}
}
