// Package principal holds the records that bearer-token subjects must resolve
// against. A syntactically valid token whose subject has no principal record
// is rejected by role-scoped verification.
package principal

import (
	"time"

	dErrors "scangate/pkg/domain-errors"
)

// Role is the authorization level carried by a principal and its tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// Status tracks whether a principal may authenticate.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// Principal is an account record keyed by the token subject ID.
type Principal struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Status       Status    `json:"status"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// New creates a Principal with domain invariant validation.
func New(id, email string, role Role) (*Principal, error) {
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "principal id cannot be empty")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid role")
	}
	return &Principal{
		ID:        id,
		Email:     email,
		Role:      role,
		Status:    StatusActive,
		CreatedAt: time.Now(),
	}, nil
}
