// Package token implements the credential verifier. One implementation serves
// both plain and role-scoped verification so secret handling and error
// mapping cannot diverge between the user and admin paths.
package token

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"scangate/internal/principal"
	dErrors "scangate/pkg/domain-errors"
)

// Claims represents the JWT claims carried by access tokens.
type Claims struct {
	Role principal.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the typed claim a verified token decodes to. It lives for one
// request and is never persisted.
type Identity struct {
	SubjectID string
	Role      principal.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// PrincipalFinder resolves token subjects for role-scoped verification.
type PrincipalFinder interface {
	FindByID(ctx context.Context, id string) (*principal.Principal, error)
}

// Verifier validates bearer tokens and mints them for trusted callers.
// The signing key is injected at construction; verification never reads
// ambient process state.
type Verifier struct {
	signingKey []byte
	issuer     string
	audience   string
	principals PrincipalFinder
}

// NewVerifier constructs a Verifier. An empty signing key is a configuration
// error and is rejected here so it fails at startup, not per request.
func NewVerifier(signingKey, issuer, audience string, principals PrincipalFinder) (*Verifier, error) {
	if signingKey == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "signing key is required")
	}
	return &Verifier{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		principals: principals,
	}, nil
}

// Issue mints a signed access token for the given subject and role.
func (v *Verifier) Issue(subjectID string, role principal.Role, expiresIn time.Duration) (string, error) {
	if subjectID == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject id is required")
	}
	if !role.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}

	now := time.Now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    v.issuer,
			Audience:  []string{v.audience},
			ID:        uuid.NewString(),
		},
	})

	signed, err := newToken.SignedString(v.signingKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify validates a token's signature and registered claims and decodes it
// into a typed Identity. It is side-effect-free and safe to repeat.
func (v *Verifier) Verify(_ context.Context, tokenString string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithAudience(v.audience))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, dErrors.New(dErrors.CodeUnauthorized, "malformed token")
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		default:
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
		}
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Subject == "" || !claims.Role.IsValid() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	identity := &Identity{
		SubjectID: claims.Subject,
		Role:      claims.Role,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

// VerifyRole validates a token like Verify and additionally requires the
// claimed role to match and the subject to resolve to an active principal.
// A syntactically valid but orphaned token is rejected.
func (v *Verifier) VerifyRole(ctx context.Context, tokenString string, role principal.Role) (*Identity, error) {
	identity, err := v.Verify(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	if err := v.Authorize(ctx, identity, role); err != nil {
		return nil, err
	}
	return identity, nil
}

// Authorize applies the role-scoped checks to an already-decoded identity so
// callers holding one never pay for a second token parse. The claimed role
// must match and the subject must resolve to an active principal of that role.
func (v *Verifier) Authorize(ctx context.Context, identity *Identity, role principal.Role) error {
	if identity == nil || identity.Role != role {
		return dErrors.New(dErrors.CodeUnauthorized, "insufficient role")
	}

	if v.principals == nil {
		return dErrors.New(dErrors.CodeInternal, "principal store not configured")
	}
	p, err := v.principals.FindByID(ctx, identity.SubjectID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeNotFound {
			return dErrors.New(dErrors.CodeUnauthorized, "unknown principal")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "principal lookup failed")
	}
	if p.Status != principal.StatusActive || p.Role != role {
		return dErrors.New(dErrors.CodeUnauthorized, "principal not permitted")
	}

	return nil
}
