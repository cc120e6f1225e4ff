package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/example/screenplay/internal/domain"
)

// APIError represents a structured API error response
type APIError struct {
	Code    string              `json:"error_code"`
	Message string              `json:"error_message"`
	Details string              `json:"details,omitempty"`
	Fields  []domain.FieldError `json:"fields,omitempty"`
}

// writeError writes a structured error response
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIError{
		Code:    code,
		Message: message,
	})
}

// writeJSON encodes v after the status line. Encoding failures can only be logged.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json", slog.String("error", err.Error()))
	}
}

// writeMessage writes a {"message": ...} body.
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// classify maps a domain error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusBadRequest, "USER_EXISTS"
	case errors.Is(err, domain.ErrMissingCredential):
		return http.StatusUnauthorized, "MISSING_CREDENTIAL"
	case errors.Is(err, domain.ErrInvalidCredential):
		return http.StatusUnauthorized, "INVALID_CREDENTIAL"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS"
	case errors.Is(err, domain.ErrUnknownIdentity):
		return http.StatusUnauthorized, "UNKNOWN_IDENTITY"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// respondError writes err using the domain mapping. msg is the message shown
// for 500s; other kinds carry their own text.
func (a *App) respondError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status, code := classify(err)
	body := APIError{Code: code}

	switch status {
	case http.StatusInternalServerError:
		a.logger.ErrorContext(r.Context(), msg,
			slog.String("request_id", requestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		body.Message = msg
		body.Details = err.Error()
	case http.StatusNotFound:
		body.Message = err.Error()
	case http.StatusUnauthorized:
		body.Message = authMessage(err)
	default:
		body.Message = err.Error()
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			body.Message = "Invalid request"
			body.Fields = ve.Errors
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			body.Message = "User already exists"
		}
	}
	writeJSON(w, status, body)
}

// notFound names the missing entity in the message, e.g. "Character not found".
func notFound(entity string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s %w", entity, domain.ErrNotFound)
	}
	return err
}

// authMessage returns the sentinel's text so wrapped parser detail never
// reaches the client.
func authMessage(err error) string {
	for _, s := range []error{
		domain.ErrMissingCredential,
		domain.ErrInvalidCredential,
		domain.ErrInvalidCredentials,
		domain.ErrUnknownIdentity,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "access denied"
}
