package store

import (
	"context"

	"github.com/google/uuid"

	"scangate/internal/principal"
	dErrors "scangate/pkg/domain-errors"
	"scangate/pkg/secrets"
)

// SeedBootstrapPrincipals creates a default admin and user so a fresh
// deployment has principals for token subjects to resolve against. Repeated
// startups are idempotent: on a conflict the stored record is returned, so
// callers always see the subject IDs that actually live in the store.
func SeedBootstrapPrincipals(ctx context.Context, s Store) (admin, user *principal.Principal, err error) {
	admin, err = seedOne(ctx, s, "admin@scangate.dev", principal.RoleAdmin)
	if err != nil {
		return nil, nil, err
	}
	user, err = seedOne(ctx, s, "demo@scangate.dev", principal.RoleUser)
	if err != nil {
		return nil, nil, err
	}
	return admin, user, nil
}

func seedOne(ctx context.Context, s Store, email string, role principal.Role) (*principal.Principal, error) {
	p, err := principal.New(uuid.NewString(), email, role)
	if err != nil {
		return nil, err
	}

	password, err := secrets.Generate()
	if err != nil {
		return nil, err
	}
	p.PasswordHash, err = secrets.Hash(password)
	if err != nil {
		return nil, err
	}

	if err := s.Create(ctx, p); err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeConflict {
			return s.FindByEmail(ctx, email)
		}
		return nil, err
	}
	return p, nil
}
