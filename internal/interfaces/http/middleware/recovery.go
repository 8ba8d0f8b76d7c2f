package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// Recovery turns a handler panic into a 500 envelope and logs the stack.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic while serving request",
					logging.String("panic", fmt.Sprint(r)),
					logging.String("path", c.Request.URL.Path),
					logging.String(logging.FieldRequestID, RequestID(c)),
					logging.String("stack", string(debug.Stack())),
				)
				AbortWithError(c, errors.Internal("internal server error"))
			}
		}()
		c.Next()
	}
}
