// Package handlers implements the gin handlers of the /api/v1 surface.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChemXGen/internal/interfaces/http/middleware"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// bindJSON decodes the body into dst, answering 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body").WithDetail(err.Error()))
		return false
	}
	return true
}

func writeError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}
