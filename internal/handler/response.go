package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError so the wire format
// stays uniform. Errors always look like:
//   {"error": "not_found", "message": "article not found with id abc123"}
// and validation errors add the offending field:
//   {"error": "validation_error", "message": "title is required", "field": "title"}

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/inkwell/internal/access"
	"github.com/sakif/inkwell/internal/apperror"
	"github.com/sakif/inkwell/internal/auth"
)

// maxBodyBytes caps request bodies. Article content is the largest payload.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Input field at fault, when known
}

// writeJSON sends a JSON response with the given status code. Headers must
// be set before WriteHeader; anything set afterwards is ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; logging is all that is left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation      → 400 validation_error
//	ErrInvalidState    → 400 invalid_state
//	ErrUnauthenticated → 401 unauthenticated
//	ErrForbidden       → 403 forbidden
//	ErrNotFound        → 404 not_found
//	ErrConflict        → 409 conflict
//	anything else      → 500 internal_error, message hidden
//
// errors.As finds the *AppError even when a service wrapped it with %w.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrInvalidState):
			status = http.StatusBadRequest
			errorType = "invalid_state"
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
			errorType = "unauthenticated"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		}

		if status == http.StatusInternalServerError {
			writeInternalError(w)
			return
		}
		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	// The raw message may contain SQL or file paths; never send it.
	writeInternalError(w)
}

func writeInternalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a single JSON object from the request body into dst.
// Malformed or oversized bodies become a validation error on "body".
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperror.ValidationFailed("body", "request body is too large")
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "request body is required")
		}
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}

// callerFrom returns the identity attached by the auth middleware, or the
// anonymous caller.
func callerFrom(r *http.Request) access.Caller {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return access.Anonymous
	}
	return access.FromClaims(claims)
}

// fail writes err to the client and logs it when it will surface as a 500.
// Client errors are already visible in the access log.
func fail(logger *slog.Logger, w http.ResponseWriter, r *http.Request, msg string, err error) {
	if isInternal(err) {
		logger.Error(msg,
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, err)
}

// isInternal reports whether err carries none of the client-facing kinds.
func isInternal(err error) bool {
	for _, kind := range []error{
		apperror.ErrValidation, apperror.ErrInvalidState, apperror.ErrUnauthenticated,
		apperror.ErrForbidden, apperror.ErrNotFound, apperror.ErrConflict,
	} {
		if errors.Is(err, kind) {
			return false
		}
	}
	return true
}
