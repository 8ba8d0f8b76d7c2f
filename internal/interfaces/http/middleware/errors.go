package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChemXGen/pkg/errors"
)

// ErrorBody is the error envelope of every failed API response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorResponse converts err to its HTTP status and envelope. Errors that
// carry no code are reported as internal errors without leaking the cause.
func ErrorResponse(err error) (int, ErrorBody) {
	code := errors.GetCode(err)
	var ae *errors.AppError
	if code == errors.CodeUnknown || !errors.As(err, &ae) {
		code = errors.ErrCodeInternal
		return errors.HTTPStatusForCode(code), ErrorBody{Code: string(code), Message: "internal server error"}
	}
	return errors.HTTPStatusForCode(code), ErrorBody{Code: string(code), Message: ae.Message, Detail: ae.Detail}
}

// AbortWithError records err on the context and writes the envelope.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	status, body := ErrorResponse(err)
	c.AbortWithStatusJSON(status, body)
}
