package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of principals the API distinguishes.
type Role string

const (
	RoleGuest    Role = "guest"
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleGuest, RoleCustomer, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q: %w", s, ErrUnauthenticated)
	}
}

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Identity is the authenticated principal of one request.
type Identity struct {
	UserID string
	Role   Role
}

// GuestIdentity is the identity of a request without a credential.
var GuestIdentity = Identity{Role: RoleGuest}

func (i Identity) IsGuest() bool {
	return i.Role == RoleGuest || i.UserID == ""
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin && i.UserID != ""
}
