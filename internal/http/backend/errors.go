package backend

import (
	"context"
	"net/http"

	"github.com/bwise1/bookgroups/pkg/logger"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type ErrorCode string

const (
	ErrorCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrorCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrorCodeEmptyResponse   ErrorCode = "EMPTY_RESPONSE"
	ErrorCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	ErrorCodeRequestFailed   ErrorCode = "REQUEST_FAILED"
)

// Error is the failure result of every API operation. Its message is fixed
// per operation; the transport or decode cause is only reachable via Unwrap.
type Error struct {
	Op      string    `json:"op"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`

	cause error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf returns the ErrorCode carried by err, or "" when err is not an *Error.
func CodeOf(err error) ErrorCode {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func IsNotFound(err error) bool {
	return CodeOf(err) == ErrorCodeNotFound
}

// fail builds the operation error for cause and logs the cause, which is
// otherwise dropped from the user-facing message.
func fail(ctx context.Context, op string, code ErrorCode, message string, cause error) *Error {
	fields := []zap.Field{zap.String("op", op), zap.String("code", string(code))}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	logger.FromContext(ctx).Warn("reading group api call failed", fields...)

	return &Error{Op: op, Code: code, Message: message, cause: cause}
}

// classify maps a transport error onto an ErrorCode.
func classify(err error) ErrorCode {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusNotFound:
			return ErrorCodeNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrorCodeUnauthorized
		}
	}
	return ErrorCodeRequestFailed
}
