package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scangate/internal/principal"
	dErrors "scangate/pkg/domain-errors"
)

func TestInMemory_FindByID(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	p, err := principal.New("sub-1", "alice@example.com", principal.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, p))

	t.Run("existing principal", func(t *testing.T) {
		got, err := s.FindByID(ctx, "sub-1")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.Email)
		assert.Equal(t, principal.RoleAdmin, got.Role)
	})

	t.Run("missing principal maps to not found", func(t *testing.T) {
		_, err := s.FindByID(ctx, "sub-ghost")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
	})

	t.Run("returned record is a copy", func(t *testing.T) {
		got, err := s.FindByID(ctx, "sub-1")
		require.NoError(t, err)
		got.Email = "mutated@example.com"

		again, err := s.FindByID(ctx, "sub-1")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", again.Email)
	})
}

func TestInMemory_CreateConflict(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	p, err := principal.New("sub-dup", "bob@example.com", principal.RoleUser)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, p))

	err = s.Create(ctx, p)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeConflict, dErrors.CodeOf(err))
}

func TestInMemory_FindByEmail(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	p, err := principal.New("sub-1", "alice@example.com", principal.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, p))

	got, err := s.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", got.ID)

	_, err = s.FindByEmail(ctx, "nobody@example.com")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestSeedBootstrapPrincipals_StableAcrossRestarts(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	admin1, user1, err := SeedBootstrapPrincipals(ctx, s)
	require.NoError(t, err)
	admin2, user2, err := SeedBootstrapPrincipals(ctx, s)
	require.NoError(t, err)

	assert.Equal(t, admin1.ID, admin2.ID, "reseeding reports the stored admin subject")
	assert.Equal(t, user1.ID, user2.ID, "reseeding reports the stored user subject")
	assert.Equal(t, principal.RoleAdmin, admin2.Role)
	assert.Equal(t, principal.RoleUser, user2.Role)
}

func TestPrincipalNew_Validation(t *testing.T) {
	_, err := principal.New("", "a@b.c", principal.RoleUser)
	assert.Error(t, err)

	_, err = principal.New("id", "", principal.RoleUser)
	assert.Error(t, err)

	_, err = principal.New("id", "a@b.c", principal.Role("superuser"))
	assert.Error(t, err)
}
