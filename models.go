package main

import "time"

// userResponse is the public view of a user; the password hash never leaves the store.
type userResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// TokenInfo represents token metadata for introspection
type TokenInfo struct {
	Active    bool   `json:"active"`
	Email     string `json:"email,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
	ExpiresAt int64  `json:"exp,omitempty"`
}
