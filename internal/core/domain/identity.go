package domain

import (
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidRole is returned when a role string is not one of the known roles.
var ErrInvalidRole = errors.New("invalid role")

// Role represents the platform role of a connected user.
type Role string

const (
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

// ParseRole validates and converts a role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleVendor, RoleAdmin:
		return Role(s), nil
	default:
		return "", ErrInvalidRole
	}
}

// IsAdmin reports whether the role grants platform-wide visibility.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Identity is the resolved identity of a connection, derived from the
// verified token. Client-supplied name/role fields are display hints only
// and are never trusted over this.
type Identity struct {
	UserID      uuid.UUID
	DisplayName string
	Role        Role
}
