package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Kaboochy/GitSummit/config"
	"github.com/Kaboochy/GitSummit/utils"
)

// CronAuth guards scheduler-trigger endpoints with the shared cron secret.
// An unset secret fails closed: every request is refused rather than letting
// the job run unauthenticated.
func CronAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		secret := config.Get().CronSecret
		if secret == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40120, "cron secret not configured")
			ctx.Abort()
			return
		}

		header := ctx.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			utils.Error(ctx, http.StatusUnauthorized, 40121, "unauthorized")
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}
