// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets values, services read them. The package stays free of
// net/http so domain code can import it without pulling transport concerns.
//
// Usage in services (read values):
//
//	userID := requestcontext.UserID(ctx)
//	guestID := requestcontext.GuestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedDay)
//	ctx = requestcontext.WithGuestID(ctx, "g1")
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	userIDKey      struct{}
	userRoleKey    struct{}
	guestIDKey     struct{}
	remainingKey   struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeyUserID      = userIDKey{}
	ContextKeyUserRole    = userRoleKey{}
	ContextKeyGuestID     = guestIDKey{}
	ContextKeyRemaining   = remainingKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// UserID retrieves the authenticated subject ID, or "" for guest requests.
func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyUserID).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects an authenticated subject ID into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// UserRole retrieves the authenticated role, or "" when unauthenticated.
func UserRole(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyUserRole).(string); ok {
		return v
	}
	return ""
}

// WithUserRole injects the authenticated role into the context.
func WithUserRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ContextKeyUserRole, role)
}

// GuestID retrieves the anonymous caller's correlation ID, or "" on the
// authenticated path.
func GuestID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyGuestID).(string); ok {
		return v
	}
	return ""
}

// WithGuestID injects the guest correlation ID into the context.
func WithGuestID(ctx context.Context, guestID string) context.Context {
	return context.WithValue(ctx, ContextKeyGuestID, guestID)
}

// QuotaRemaining retrieves the guest's remaining daily quota after admission.
// Returns -1 when no quota applies (authenticated callers).
func QuotaRemaining(ctx context.Context) int {
	if v, ok := ctx.Value(ContextKeyRemaining).(int); ok {
		return v
	}
	return -1
}

// WithQuotaRemaining injects the remaining daily quota into the context.
func WithQuotaRemaining(ctx context.Context, remaining int) context.Context {
	return context.WithValue(ctx, ContextKeyRemaining, remaining)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return v
	}
	return ""
}

// UserAgent retrieves the browser family from the context.
func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return v
	}
	return ""
}

// WithClientMetadata injects client IP and user agent into a context.
// Useful for service unit tests that skip the HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	return context.WithValue(ctx, ContextKeyUserAgent, userAgent)
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects a request correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from the context.
// Falls back to time.Now() for non-HTTP contexts (workers, CLI, tests).
// The quota ledger derives its calendar day from this, so tests can pin a
// specific day with WithTime.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
