package middleware

import (
	"context"
	"strconv"
	"strings"

	"MiCiudadSV/internal/pkg"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey = "user_id"
	CallerHeader     = "x-user-id"
	// browsers cannot set headers on websocket upgrades
	queryTokenParam = "access_token"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uint64, error)
}

// AuthMiddleware resolves the caller from a Bearer token. With trustCallerHeader the
// x-user-id header is accepted as-is; that is only meant for local development.
func AuthMiddleware(auth Authenticator, trustCallerHeader bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if authHeader == "" && trustCallerHeader {
			if raw := c.GetHeader(CallerHeader); raw != "" {
				id, err := strconv.ParseUint(raw, 10, 64)
				if err != nil || id == 0 {
					RespondError(c, pkg.Unauthorized("invalid x-user-id header"))
					return
				}
				c.Set(ContextUserIDKey, id)
				c.Next()
				return
			}
		}

		var tokenStr string
		switch {
		case authHeader != "":
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
				RespondError(c, pkg.Unauthorized("invalid authorization format"))
				return
			}
			tokenStr = strings.TrimSpace(parts[1])
		case c.Query(queryTokenParam) != "":
			tokenStr = c.Query(queryTokenParam)
		default:
			RespondError(c, pkg.Unauthorized("missing authorization header"))
			return
		}

		userID, err := auth.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			RespondError(c, err)
			return
		}
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated caller, or 0 outside AuthMiddleware.
func UserID(c *gin.Context) uint64 {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(uint64)
	return id
}
