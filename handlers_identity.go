package main

import (
	"net/http"
)

// HandleMe returns the authenticated caller.
// GET /api/me
func (a *App) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "MISSING_CREDENTIAL", "access denied: token missing")
		return
	}
	created := user.CreatedAt
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email, CreatedAt: &created})
}

// HandleTokenValidate reports whether a credential is currently valid.
// GET /api/auth/validate?token=...
func (a *App) HandleTokenValidate(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = extractToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Token is required")
		return
	}

	claims, err := a.gate.Verify(token)
	if err != nil {
		writeJSON(w, http.StatusOK, TokenInfo{Active: false})
		return
	}

	info := TokenInfo{Active: true, Email: claims.Email}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Unix()
	}
	writeJSON(w, http.StatusOK, info)
}
