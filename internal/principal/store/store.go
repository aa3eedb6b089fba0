// Package store provides principal persistence backends.
package store

import (
	"context"

	"scangate/internal/principal"
)

// Store is the principal lookup surface consumed by role-scoped token
// verification and admin tooling.
type Store interface {
	// FindByID retrieves a principal by subject ID.
	// Returns a CodeNotFound domain error when no record exists.
	FindByID(ctx context.Context, id string) (*principal.Principal, error)

	// FindByEmail retrieves a principal by its unique email.
	// Returns a CodeNotFound domain error when no record exists.
	FindByEmail(ctx context.Context, email string) (*principal.Principal, error)

	// Create inserts a new principal record.
	Create(ctx context.Context, p *principal.Principal) error
}
