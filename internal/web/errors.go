package web

// errors.go turns errors into JSON responses.
//
// The flow:
//  1. Handler encounters an error
//  2. Calls s.respondError(w, r, err)
//  3. core.MapError supplies the user message, action and code
//  4. The code picks the HTTP status
//  5. The technical error is logged with the request ID for correlation

import (
	"net/http"

	"github.com/JonMunkholm/badgemerge/internal/core"
	"github.com/JonMunkholm/badgemerge/internal/logging"
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusByCode maps error codes to HTTP statuses. Unlisted codes are 500.
var statusByCode = map[string]int{
	"SRC001":  http.StatusUnprocessableEntity,
	"SRC002":  http.StatusUnprocessableEntity,
	"COL001":  http.StatusUnprocessableEntity,
	"CFG001":  http.StatusBadRequest,
	"RULE001": http.StatusBadRequest,
	"RULE002": http.StatusBadRequest,
	"DB001":   http.StatusConflict,
	"DB002":   http.StatusNotFound,
	"DB003":   http.StatusServiceUnavailable,
	"DB004":   http.StatusServiceUnavailable,
	"DB005":   http.StatusServiceUnavailable,
	"REQ001":  http.StatusTooManyRequests,
	"REQ002":  http.StatusBadRequest,
	"REQ003":  http.StatusGatewayTimeout,
	"REQ004":  http.StatusBadRequest,
	"REQ005":  http.StatusRequestEntityTooLarge,
}

// statusFor returns the HTTP status for an error code.
func statusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes its user-facing form.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)
	status := statusFor(msg.Code)

	logger := logging.Enrich(r.Context(), s.logger)
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}
