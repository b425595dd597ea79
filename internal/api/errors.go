package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gamecircle-core/internal/auth"
	"github.com/nerrad567/gamecircle-core/internal/game"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeNotFound           = "not_found"
	ErrCodeUnauthorized       = "unauthorised"
	ErrCodeForbidden          = "forbidden"
	ErrCodeConflict           = "conflict"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeInternal           = "internal_error"
)

// Client-facing messages.
const (
	msgMissingParameter = "The server could not process the request because a required parameter is missing. " +
		"Please include all necessary parameters and try again."
	msgEmailExists = "The provided email is already in use. " +
		"Please choose a different email address or try to reset your password if you have forgotten it."
	msgUserNotFound  = "The requested user could not be found. Please verify the email and try again."
	msgWrongPassword = "The provided password does not match our records. " +
		"Please verify your password and try again."
	msgGameNotFound  = "The requested game could not be found."
	msgOwnerNotFound = "The requested user could not be found."
	msgAccessDenied  = "Access Denied. The requested resource requires authentication. " +
		"Please provide valid credentials to access this resource."
	msgForbidden       = "You can only modify your own account."
	msgPasswordTooLong = "The password must be at most 72 bytes long."
	msgInternal        = "The server encountered an unexpected condition that prevented it from fulfilling the request. " +
		"Please try again later or contact the administrator."
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, msgInternal)
}

// writeDomainError maps a sentinel from the auth or game packages to its
// HTTP response. Anything unrecognised is logged and reported as a 500.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingParameter), errors.Is(err, game.ErrMissingParameter):
		writeBadRequest(w, msgMissingParameter)
	case errors.Is(err, auth.ErrPasswordTooLong):
		writeBadRequest(w, msgPasswordTooLong)
	case errors.Is(err, auth.ErrEmailExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, msgEmailExists)
	case errors.Is(err, auth.ErrUserNotFound):
		writeNotFound(w, msgUserNotFound)
	case errors.Is(err, game.ErrGameNotFound):
		writeNotFound(w, msgGameNotFound)
	case errors.Is(err, game.ErrOwnerNotFound):
		writeNotFound(w, msgOwnerNotFound)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidCredentials, msgWrongPassword)
	case errors.Is(err, auth.ErrMissingBearer), errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenExpired):
		writeUnauthorized(w, msgAccessDenied)
	default:
		s.logger.Error(op+" failed",
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w)
	}
}
