package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
	"github.com/aliskhannn/exam-prep/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps quiz flow errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrUnknownExamType),
		errors.Is(err, entities.ErrUnknownDifficulty),
		errors.Is(err, service.ErrInvalidCount),
		errors.Is(err, service.ErrInvalidOption):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrGenerationInProgress),
		errors.Is(err, service.ErrNoActiveQuestion),
		errors.Is(err, service.ErrAlreadySubmitted),
		errors.Is(err, service.ErrNoSelection),
		errors.Is(err, service.ErrNotSubmitted),
		errors.Is(err, service.ErrStaleQuestion):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
