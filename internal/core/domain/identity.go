package domain

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

const maxUsernameLength = 64

// ErrInvalidUsername indicates the username cannot be used as a store key.
var ErrInvalidUsername = errors.New("invalid username")

// User mirrors the persisted credential entry for an account.
type User struct {
	Username          string
	PasswordHash      string
	Role              Role
	CreatedAt         time.Time
	PasswordChangedAt time.Time
}

// UserSummary is the public projection of a user. It never carries the hash.
type UserSummary struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Summary strips credential material from the user.
func (u User) Summary() UserSummary {
	return UserSummary{Username: u.Username, Role: u.Role}
}

// NormalizeUsername trims the username and checks it is usable as a key suffix.
func NormalizeUsername(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	if username == "" || len(username) > maxUsernameLength {
		return "", ErrInvalidUsername
	}
	for _, r := range username {
		if r == ':' || r == '*' || unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", ErrInvalidUsername
		}
	}
	return username, nil
}

// Identity is the verified caller of a request, derived only from a valid token.
type Identity struct {
	Username  string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

// HasRole reports whether the identity holds one of roles.
func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
