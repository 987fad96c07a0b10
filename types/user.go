package types

import (
	"strings"
	"time"
)

// Role names granted to users.
const (
	RoleUser   = "ROLE_USER"
	RoleEditor = "ROLE_EDITOR"
	RoleAdmin  = "ROLE_ADMIN"
)

// User is a login credential for the address book.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"id" db:"id"`

	// Username is the unique login name.
	Username string `json:"username" db:"username"`

	// PasswordHash stores the bcrypt hash of the password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Roles lists the granted roles. RoleUser is always implied.
	Roles []string `json:"roles" db:"roles"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// NormalizeRoles returns roles deduplicated, upper-cased and always including RoleUser.
func NormalizeRoles(roles []string) []string {
	seen := make(map[string]struct{}, len(roles)+1)
	out := make([]string, 0, len(roles)+1)
	for _, role := range roles {
		role = strings.ToUpper(strings.TrimSpace(role))
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	if _, ok := seen[RoleUser]; !ok {
		out = append(out, RoleUser)
	}
	return out
}

// HasAnyRole reports whether roles contains at least one of wanted.
func HasAnyRole(roles []string, wanted ...string) bool {
	for _, have := range roles {
		for _, want := range wanted {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}
