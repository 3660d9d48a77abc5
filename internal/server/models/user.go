package models

import (
	"database/sql"
	"time"
)

// User is a credential-store row.
//
// RefreshTokenHash holds the SHA-256 hex digest of the most recently issued
// refresh token, or NULL when the user is logged out. TokenVersion is a
// per-user generation counter: every login, refresh and logout advances it,
// and tokens stamped with an older generation are rejected.
//
// Username is derived from the email local part at registration and is not
// declared unique: two accounts whose emails share a local part end up with
// the same username. Inherited behavior, kept as is.
type User struct {
	ID               string
	Email            string
	Username         string
	PasswordHash     string
	RefreshTokenHash sql.NullString
	TokenVersion     int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// UserView is the sanitized representation returned to clients.
// No password hash, no refresh token material.
type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// View strips sensitive fields from the row.
func (u *User) View() *UserView {
	return &UserView{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}
