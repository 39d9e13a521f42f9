package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kaboochy/GitSummit/config"
	"github.com/Kaboochy/GitSummit/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.Logger = zap.NewNop()
	utils.Sugar = utils.Logger.Sugar()
}

func cronRouter() *gin.Engine {
	router := gin.New()
	router.GET("/cron/job", CronAuth(), func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"ran": true})
	})
	return router
}

func getCron(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/cron/job", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCronAuthAcceptsBearerSecret(t *testing.T) {
	t.Setenv("CRON_SECRET", "cron-token")
	config.Reset()
	t.Cleanup(config.Reset)

	rec := getCron(cronRouter(), "Bearer cron-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCronAuthRejectsWrongToken(t *testing.T) {
	t.Setenv("CRON_SECRET", "cron-token")
	config.Reset()
	t.Cleanup(config.Reset)

	router := cronRouter()
	for _, header := range []string{"", "Bearer wrong", "cron-token", "Basic cron-token"} {
		rec := getCron(router, header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestCronAuthFailsClosedWithoutSecret(t *testing.T) {
	t.Setenv("CRON_SECRET", "")
	config.Reset()
	t.Cleanup(config.Reset)

	rec := getCron(cronRouter(), "Bearer anything")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
