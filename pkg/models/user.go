package models

import (
	"strings"
	"time"
)

// User is a locally stored account, keyed by email and created on first login.
type User struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	GoogleID  string    `json:"google_id"`
	Picture   *string   `json:"picture,omitempty"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeEmail returns the canonical form used as the user key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
