package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.  The
// prefix before the underscore names the owning module.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
)

const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")
)

// Task queue
const (
	ErrCodeTaskNotFound     ErrorCode = "TASK_001"
	ErrCodeTaskInvalid      ErrorCode = "TASK_002"
	ErrCodeTaskTerminal     ErrorCode = "TASK_003"
	ErrCodeTaskUnknownKind  ErrorCode = "TASK_004"
	ErrCodeTaskStateCorrupt ErrorCode = "TASK_005"
)

// Persistence backends
const (
	ErrCodeStoreUnavailable ErrorCode = "STORE_001"
	ErrCodeStoreKeyNotFound ErrorCode = "STORE_002"
	ErrCodeStoreWrite       ErrorCode = "STORE_003"
)

// AI prediction gateway
const (
	ErrCodeGatewayUnavailable  ErrorCode = "GATEWAY_001"
	ErrCodeGatewayFailed       ErrorCode = "GATEWAY_002"
	ErrCodeGatewayBadResponse  ErrorCode = "GATEWAY_003"
	ErrCodeGatewayInputInvalid ErrorCode = "GATEWAY_004"
)

// Structure rendering
const (
	ErrCodeRenderEmpty    ErrorCode = "RENDER_001"
	ErrCodeRenderInvalid  ErrorCode = "RENDER_002"
	ErrCodeMoleculeFormat ErrorCode = "RENDER_003"
)

// Identity
const (
	ErrCodeAuthInvalidCredentials ErrorCode = "AUTH_001"
	ErrCodeAuthTokenInvalid       ErrorCode = "AUTH_002"
	ErrCodeAuthTokenExpired       ErrorCode = "AUTH_003"
	ErrCodeAuthProviderDown       ErrorCode = "AUTH_004"
	ErrCodeAuthUserExists         ErrorCode = "AUTH_005"
	ErrCodeProfileNotFound        ErrorCode = "AUTH_006"
	ErrCodeProjectNotFound        ErrorCode = "PROJ_001"
)

// Billing
const (
	ErrCodeBillingUnknownPrice ErrorCode = "BILLING_001"
	ErrCodeBillingNoCustomer   ErrorCode = "BILLING_002"
	ErrCodeBillingProvider     ErrorCode = "BILLING_003"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,

	ErrCodeTaskNotFound:     http.StatusNotFound,
	ErrCodeTaskInvalid:      http.StatusBadRequest,
	ErrCodeTaskTerminal:     http.StatusConflict,
	ErrCodeTaskUnknownKind:  http.StatusBadRequest,
	ErrCodeTaskStateCorrupt: http.StatusInternalServerError,

	ErrCodeStoreUnavailable: http.StatusServiceUnavailable,
	ErrCodeStoreKeyNotFound: http.StatusNotFound,
	ErrCodeStoreWrite:       http.StatusInternalServerError,

	ErrCodeGatewayUnavailable:  http.StatusServiceUnavailable,
	ErrCodeGatewayFailed:       http.StatusBadGateway,
	ErrCodeGatewayBadResponse:  http.StatusBadGateway,
	ErrCodeGatewayInputInvalid: http.StatusBadRequest,

	ErrCodeRenderEmpty:    http.StatusUnprocessableEntity,
	ErrCodeRenderInvalid:  http.StatusUnprocessableEntity,
	ErrCodeMoleculeFormat: http.StatusBadRequest,

	ErrCodeAuthInvalidCredentials: http.StatusUnauthorized,
	ErrCodeAuthTokenInvalid:       http.StatusUnauthorized,
	ErrCodeAuthTokenExpired:       http.StatusUnauthorized,
	ErrCodeAuthProviderDown:       http.StatusServiceUnavailable,
	ErrCodeAuthUserExists:         http.StatusConflict,
	ErrCodeProfileNotFound:        http.StatusNotFound,
	ErrCodeProjectNotFound:        http.StatusNotFound,

	ErrCodeBillingUnknownPrice: http.StatusBadRequest,
	ErrCodeBillingNoCustomer:   http.StatusNotFound,
	ErrCodeBillingProvider:     http.StatusBadGateway,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeExternalService:    "external service error",

	ErrCodeTaskNotFound:     "task not found",
	ErrCodeTaskInvalid:      "invalid task request",
	ErrCodeTaskTerminal:     "task already finished",
	ErrCodeTaskUnknownKind:  "unknown analysis type",
	ErrCodeTaskStateCorrupt: "stored task list is corrupt",

	ErrCodeStoreUnavailable: "task store unavailable",
	ErrCodeStoreKeyNotFound: "key not found",
	ErrCodeStoreWrite:       "failed to write task store",

	ErrCodeGatewayUnavailable:  "prediction service unavailable",
	ErrCodeGatewayFailed:       "analysis failed",
	ErrCodeGatewayBadResponse:  "prediction service returned an unreadable response",
	ErrCodeGatewayInputInvalid: "invalid input for prediction",

	ErrCodeRenderEmpty:    "no structure",
	ErrCodeRenderInvalid:  "invalid structure",
	ErrCodeMoleculeFormat: "unsupported molecule format",

	ErrCodeAuthInvalidCredentials: "invalid email or password",
	ErrCodeAuthTokenInvalid:       "invalid token",
	ErrCodeAuthTokenExpired:       "token expired",
	ErrCodeAuthProviderDown:       "identity provider unavailable",
	ErrCodeAuthUserExists:         "user already exists",
	ErrCodeProfileNotFound:        "profile not found",
	ErrCodeProjectNotFound:        "project not found",

	ErrCodeBillingUnknownPrice: "unknown plan price",
	ErrCodeBillingNoCustomer:   "no billing customer for user",
	ErrCodeBillingProvider:     "payment provider error",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
