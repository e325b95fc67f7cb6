package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/raktsetu/blood-request-service/internal/core/domain"
)

var statusByCode = map[domain.Code]int{
	domain.CodeValidation:       http.StatusBadRequest,
	domain.CodeNotFound:         http.StatusNotFound,
	domain.CodeInvalidState:     http.StatusBadRequest,
	domain.CodeIncompatible:     http.StatusForbidden,
	domain.CodeAlreadyAccepted:  http.StatusBadRequest,
	domain.CodeAlreadyCompleted: http.StatusConflict,
	domain.CodePrecondition:     http.StatusBadRequest,
	domain.CodeNotAssigned:      http.StatusBadRequest,
	domain.CodeForbidden:        http.StatusForbidden,
	domain.CodeUnauthorized:     http.StatusUnauthorized,
	domain.CodeConflict:         http.StatusConflict,
	domain.CodeTransient:        http.StatusServiceUnavailable,
	domain.CodeInternal:         http.StatusInternalServerError,
}

// StatusFor maps a domain error code to its HTTP status.
func StatusFor(code domain.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError renders err as {"error", "error_description"}. Errors without a
// domain code are internal and their text is not sent.
func WriteError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.NewError(domain.CodeInternal, "")
	}
	resp := errorResponse{Error: string(de.Code), Description: de.Message}
	switch de.Code {
	case domain.CodeInternal:
		resp.Description = "internal server error"
	case domain.CodeTransient:
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, StatusFor(de.Code), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON body into v. An empty body is allowed when
// optional is set.
func decodeJSON(r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	if err != nil {
		return domain.WrapError(err, domain.CodeValidation, "invalid request body")
	}
	return nil
}

// logFailure logs err at a level matching who is at fault.
func logFailure(r *http.Request, logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if StatusFor(domain.CodeOf(err)) >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), msg, attrs...)
		return
	}
	logger.WarnContext(r.Context(), msg, attrs...)
}
