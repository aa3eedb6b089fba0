package testutil

import (
	"net/http"
	"time"

	"scangate/pkg/requestcontext"
)

// WithIdentity adds an authenticated subject to the request context.
// This simulates what the gate middleware would do for verified requests.
func WithIdentity(req *http.Request, userID, role string) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithUserRole(ctx, role)
	return req.WithContext(ctx)
}

// WithGuestID adds a guest identifier to the request context.
func WithGuestID(req *http.Request, guestID string) *http.Request {
	return req.WithContext(requestcontext.WithGuestID(req.Context(), guestID))
}

// WithFrozenTime pins the request clock, letting tests control which
// calendar day the quota ledger evaluates against.
func WithFrozenTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}
