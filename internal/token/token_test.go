package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scangate/internal/principal"
	"scangate/internal/principal/store"
	dErrors "scangate/pkg/domain-errors"
)

const testKey = "unit-test-signing-key"

func newVerifier(t *testing.T, principals PrincipalFinder) *Verifier {
	t.Helper()
	v, err := NewVerifier(testKey, "scangate", "scangate-api", principals)
	require.NoError(t, err)
	return v
}

func TestNewVerifier_RequiresKey(t *testing.T) {
	_, err := NewVerifier("", "scangate", "scangate-api", nil)
	require.Error(t, err)
}

func TestVerify_RoundTrip(t *testing.T) {
	v := newVerifier(t, nil)
	ctx := context.Background()

	signed, err := v.Issue("sub-42", principal.RoleUser, time.Hour)
	require.NoError(t, err)

	identity, err := v.Verify(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, "sub-42", identity.SubjectID)
	assert.Equal(t, principal.RoleUser, identity.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), identity.ExpiresAt, time.Minute)
}

func TestVerify_Rejections(t *testing.T) {
	v := newVerifier(t, nil)
	ctx := context.Background()

	t.Run("malformed token", func(t *testing.T) {
		_, err := v.Verify(ctx, "not-a-jwt")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
		assert.Contains(t, err.Error(), "malformed")
	})

	t.Run("expired token", func(t *testing.T) {
		signed, err := v.Issue("sub-42", principal.RoleUser, -time.Minute)
		require.NoError(t, err)

		_, err = v.Verify(ctx, signed)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other, err := NewVerifier("different-key", "scangate", "scangate-api", nil)
		require.NoError(t, err)
		signed, err := other.Issue("sub-42", principal.RoleUser, time.Hour)
		require.NoError(t, err)

		_, err = v.Verify(ctx, signed)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewVerifier(testKey, "someone-else", "scangate-api", nil)
		require.NoError(t, err)
		signed, err := other.Issue("sub-42", principal.RoleUser, time.Hour)
		require.NoError(t, err)

		_, err = v.Verify(ctx, signed)
		require.Error(t, err)
	})
}

func TestVerifyRole(t *testing.T) {
	ctx := context.Background()
	principals := store.NewInMemory()

	admin, err := principal.New("admin-1", "admin@example.com", principal.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, principals.Create(ctx, admin))

	v := newVerifier(t, principals)

	t.Run("admin token with existing principal", func(t *testing.T) {
		signed, err := v.Issue("admin-1", principal.RoleAdmin, time.Hour)
		require.NoError(t, err)

		identity, err := v.VerifyRole(ctx, signed, principal.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, principal.RoleAdmin, identity.Role)
	})

	t.Run("user token on admin verification", func(t *testing.T) {
		signed, err := v.Issue("admin-1", principal.RoleUser, time.Hour)
		require.NoError(t, err)

		_, err = v.VerifyRole(ctx, signed, principal.RoleAdmin)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	t.Run("orphaned admin token", func(t *testing.T) {
		signed, err := v.Issue("admin-gone", principal.RoleAdmin, time.Hour)
		require.NoError(t, err)

		_, err = v.VerifyRole(ctx, signed, principal.RoleAdmin)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
		assert.Contains(t, err.Error(), "unknown principal")
	})

	t.Run("disabled principal", func(t *testing.T) {
		disabled, err := principal.New("admin-2", "former@example.com", principal.RoleAdmin)
		require.NoError(t, err)
		disabled.Status = principal.StatusDisabled
		require.NoError(t, principals.Create(ctx, disabled))

		signed, err := v.Issue("admin-2", principal.RoleAdmin, time.Hour)
		require.NoError(t, err)

		_, err = v.VerifyRole(ctx, signed, principal.RoleAdmin)
		require.Error(t, err)
	})
}

func TestAuthorize_UsesDecodedIdentity(t *testing.T) {
	ctx := context.Background()
	principals := store.NewInMemory()

	admin, err := principal.New("admin-1", "admin@example.com", principal.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, principals.Create(ctx, admin))

	v := newVerifier(t, principals)

	signed, err := v.Issue("admin-1", principal.RoleAdmin, time.Hour)
	require.NoError(t, err)
	identity, err := v.Verify(ctx, signed)
	require.NoError(t, err)

	t.Run("matching role with active principal", func(t *testing.T) {
		require.NoError(t, v.Authorize(ctx, identity, principal.RoleAdmin))
	})

	t.Run("role mismatch", func(t *testing.T) {
		err := v.Authorize(ctx, identity, principal.RoleUser)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})

	t.Run("nil identity", func(t *testing.T) {
		err := v.Authorize(ctx, nil, principal.RoleAdmin)
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	})
}

func TestVerify_IsRepeatable(t *testing.T) {
	v := newVerifier(t, nil)
	ctx := context.Background()

	signed, err := v.Issue("sub-42", principal.RoleUser, time.Hour)
	require.NoError(t, err)

	first, err := v.Verify(ctx, signed)
	require.NoError(t, err)
	second, err := v.Verify(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
