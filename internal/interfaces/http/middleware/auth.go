package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChemXGen/internal/application/identity"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// SessionResolver resolves a bearer token to a session.
type SessionResolver interface {
	Session(ctx context.Context, accessToken string) identity.Session
}

// Authenticate resolves the bearer token, if any, and attaches the user.
// Requests without a valid token continue anonymously; use RequireUser on
// routes that need a user.
func Authenticate(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}
		c.Set(ctxAccessToken, token)
		if s := resolver.Session(c.Request.Context(), token); s.User != nil {
			SetUser(c, s.User)
		}
		c.Next()
	}
}

// RequireUser aborts with 401 when no user is attached.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			AbortWithError(c, errors.Unauthorized("sign in required"))
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
