package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kaboochy/GitSummit/config"
	"github.com/Kaboochy/GitSummit/services"
	"github.com/Kaboochy/GitSummit/utils"
)

// WebhookController receives GitHub push webhooks and feeds the commits into
// ingestion.
type WebhookController struct {
	ingest *services.IngestService
}

// NewWebhookController creates a new controller instance.
func NewWebhookController(ingest *services.IngestService) *WebhookController {
	return &WebhookController{ingest: ingest}
}

// pushPayload is the subset of the GitHub push event the engine needs.
// Optional-field ambiguity stops here: commits are normalized into RawEvents
// before any scoring logic sees them.
type pushPayload struct {
	Repository struct {
		ID       uint   `json:"id"`
		FullName string `json:"full_name"`
	} `json:"repository"`
	Sender struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	} `json:"sender"`
	Commits []struct {
		ID        string    `json:"id"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"commits"`
}

// HandleGithub verifies the webhook signature and ingests each commit of a
// push. Non-push event types are acknowledged without side effects.
func (w *WebhookController) HandleGithub(ctx *gin.Context) {
	secret := config.Get().WebhookSecret
	if secret == "" {
		// Fail closed: without a secret nothing can be verified.
		utils.Error(ctx, http.StatusServiceUnavailable, 50310, "webhook secret not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, 1<<20))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "unreadable body")
		return
	}

	if !verifySignature(body, ctx.GetHeader("X-Hub-Signature-256"), secret) {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "bad signature")
		return
	}

	if ctx.GetHeader("X-GitHub-Event") != "push" {
		utils.Success(ctx, gin.H{"ignored": true})
		return
	}

	var payload pushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "malformed payload")
		return
	}
	if payload.Sender.ID == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40012, "payload missing sender identity")
		return
	}

	accepted, duplicates := 0, 0
	for _, commit := range payload.Commits {
		res, err := w.ingest.Ingest(ctx.Request.Context(), services.RawEvent{
			ExternalID:   commit.ID,
			GithubID:     payload.Sender.ID,
			Username:     payload.Sender.Login,
			AvatarURL:    payload.Sender.AvatarURL,
			RepoFullName: payload.Repository.FullName,
			CommitSHA:    commit.ID,
			LinesChanged: -1, // push webhooks carry no diff stats
			CommitCount:  1,
			OccurredAt:   commit.Timestamp,
		})
		if err != nil {
			utils.Sugar.Errorf("webhook ingest sha=%s failed: %v", commit.ID, err)
			continue
		}
		if res.Duplicate {
			duplicates++
		} else if res.Accepted {
			accepted++
		}
	}

	if accepted > 0 {
		utils.InvalidateByPrefix("leaderboard:")
	}
	utils.Success(ctx, gin.H{
		"commits":    len(payload.Commits),
		"accepted":   accepted,
		"duplicates": duplicates,
	})
}

// verifySignature checks the sha256= HMAC header against the raw body using
// constant-time comparison.
func verifySignature(body []byte, header, secret string) bool {
	if header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}
