package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/screenplay/internal/domain"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON value from the request body. Malformed input
// comes back as a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return err
		}
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return domain.NewValidationError("body", "request body too large")
		}
		return domain.NewValidationError("body", "invalid JSON")
	}
	return nil
}

func (a *App) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var c domain.Credentials
	if err := decodeJSON(w, r, &c); err != nil {
		a.respondError(w, r, err, "Invalid request body")
		return
	}

	user, err := a.gate.Register(r.Context(), c)
	if err != nil {
		a.respondError(w, r, err, "Error registering user")
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Email: user.Email})
}

func (a *App) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var c domain.Credentials
	if err := decodeJSON(w, r, &c); err != nil {
		a.respondError(w, r, err, "Invalid request body")
		return
	}

	token, err := a.gate.Login(r.Context(), c)
	if err != nil {
		a.respondError(w, r, err, "Error logging in")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}
