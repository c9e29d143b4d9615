package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"familia/internal/qrcode"
	"familia/internal/service"
	"familia/internal/storage"
	"familia/internal/validation"
	"familia/internal/viewstate"
)

type errorMapping struct {
	target error
	status int
}

// Client-facing failures keep their full message. Server-side failures
// are reported by their kind only; the wrapped cause goes to the log.
var errorStatuses = []errorMapping{
	{service.ErrNotAuthenticated, http.StatusUnauthorized},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrNotFamilyMember, http.StatusForbidden},
	{service.ErrFamilyNotFound, http.StatusNotFound},
	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrEmptyRoster, http.StatusNotFound},
	{service.ErrNoUsersResolved, http.StatusNotFound},
	{service.ErrEmailTaken, http.StatusConflict},
	{service.ErrNoCurrentFamily, http.StatusConflict},
	{qrcode.ErrInvalidPayload, http.StatusBadRequest},
	{storage.ErrUnsupportedType, http.StatusBadRequest},
	{service.ErrTransaction, http.StatusInternalServerError},
	{service.ErrChatWrite, http.StatusInternalServerError},
	{service.ErrRosterResolution, http.StatusInternalServerError},
}

// statusFor maps an error to an HTTP status and the message shown to the client
func statusFor(err error) (int, error) {
	var verr validation.Error
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr
	}
	for _, m := range errorStatuses {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				return m.status, m.target
			}
			return m.status, err
		}
	}
	return http.StatusInternalServerError, errors.New(ErrInternalServerError)
}

// respondJSON writes v as the JSON response body
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// respondSuccess writes a success view state carrying data
func respondSuccess[T any](w http.ResponseWriter, status int, data T) {
	respondJSON(w, status, viewstate.NewSuccess(data))
}

// respondWithError writes an error view state with the status matching err
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	status, public := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		slog.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	respondJSON(w, status, viewstate.NewError[any](public))
}

// respondWithMessage writes an error view state with a fixed message
func respondWithMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, viewstate.NewError[any](errors.New(message)))
}

// decodeJSON reads a bounded JSON request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondWithMessage(w, http.StatusBadRequest, ErrInvalidJSON)
		return false
	}
	return true
}
