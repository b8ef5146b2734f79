package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/searchsync/internal/domain"
)

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest      ErrorCode = "bad_request"
	CodeUnauthorized    ErrorCode = "unauthorized"
	CodeModelNotFound   ErrorCode = "model_not_found"
	CodeInvalidFilter   ErrorCode = "invalid_filter"
	CodeInvalidPage     ErrorCode = "invalid_page"
	CodeNotSupported    ErrorCode = "not_supported"
	CodePredicateFailed ErrorCode = "predicate_failed"
	CodeInternal        ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler matches a single sentinel error.
// Filter errors carry the offending field, so their message is safe to expose.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		var fe *domain.FilterError
		if errors.As(err, &fe) {
			msg = fe.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrModelNotFound, http.StatusNotFound, CodeModelNotFound),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, CodeInvalidFilter),
		sentinelHandler(domain.ErrInvalidPage, http.StatusBadRequest, CodeInvalidPage),
		sentinelHandler(domain.ErrNotSupported, http.StatusNotImplemented, CodeNotSupported),
		sentinelHandler(domain.ErrPredicate, http.StatusUnprocessableEntity, CodePredicateFailed),
	}
}
