// Package middleware holds the gin middleware of the HTTP API: request IDs,
// access logging, CORS, authentication, metrics, rate limiting and panic
// recovery.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChemXGen/internal/domain/user"
)

const (
	ctxUser        = "chemxgen.user"
	ctxAccessToken = "chemxgen.access_token"
	ctxRequestID   = "chemxgen.request_id"

	HeaderRequestID = "X-Request-ID"
)

// CurrentUser returns the signed-in user, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *user.User {
	if v, ok := c.Get(ctxUser); ok {
		if u, ok := v.(*user.User); ok {
			return u
		}
	}
	return nil
}

// AccessToken returns the bearer token sent with the request.
func AccessToken(c *gin.Context) string {
	return c.GetString(ctxAccessToken)
}

func RequestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

// SetUser attaches u to the request. Exposed for handler tests.
func SetUser(c *gin.Context, u *user.User) {
	c.Set(ctxUser, u)
}
