package rest

import (
	"encoding/json"
	"net/http"

	"github.com/bwise1/bookgroups/internal/http/backend"
	"github.com/bwise1/bookgroups/util"
	"github.com/bwise1/bookgroups/util/tracing"
	"github.com/bwise1/bookgroups/util/values"
	"go.uber.org/zap"
)

// ServerResponse is the envelope of every JSON route.
type ServerResponse struct {
	Err        error       `json:"-"`
	Message    string      `json:"message"`
	Status     string      `json:"status"`
	StatusCode int         `json:"-"`
	Data       interface{} `json:"data,omitempty"`
}

func respondWithError(err error, message, status string, tc *tracing.Context) *ServerResponse {
	fields := []zap.Field{zap.String("status", status), zap.Error(err)}
	if tc != nil {
		fields = append(fields, zap.String("request_id", tc.RequestID), zap.String("request_source", tc.RequestSource))
	}
	zap.L().Error(message, fields...)

	return &ServerResponse{
		Err:        err,
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
	}
}

// respondWithBackendError reports an API operation failure with its fixed
// message and a status derived from its code.
func respondWithBackendError(err error, tc *tracing.Context) *ServerResponse {
	return respondWithError(err, err.Error(), backendStatus(err), tc)
}

func backendStatus(err error) string {
	switch backend.CodeOf(err) {
	case backend.ErrorCodeNotFound:
		return values.NotFound
	case backend.ErrorCodeUnauthorized:
		return values.NotAuthorised
	case backend.ErrorCodeInvalidArgument:
		return values.BadRequestBody
	default:
		return values.UpstreamErr
	}
}

func writeErrorResponse(w http.ResponseWriter, err error, status, message string) {
	zap.L().Warn(message, zap.String("status", status), zap.Error(err))

	data, _ := json.Marshal(&ServerResponse{Message: message, Status: status})
	writeJSONResponse(w, data, util.StatusCode(status))
}

func writeJSONResponse(w http.ResponseWriter, content []byte, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(content)
}
