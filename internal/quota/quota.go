// Package quota implements the guest usage ledger: a fixed-window rate limit
// keyed by guest identity with a calendar-day window. It deters free-tier
// abuse; it is deliberately not resistant to a guest discarding its
// identifier.
package quota

import (
	"context"
	"time"

	dErrors "scangate/pkg/domain-errors"
)

// UsageRecord is the persistent per-guest usage entry.
// Count is only ever compared or incremented for requests whose day matches
// the stored day; a mismatch resets the record before the new increment.
type UsageRecord struct {
	GuestID   string    `json:"guest_id"`
	Count     int       `json:"count"`
	Day       string    `json:"day"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Decision is the outcome of one check-and-consume evaluation.
type Decision struct {
	Admitted  bool   `json:"admitted"`
	Count     int    `json:"count"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	Day       string `json:"day"`
}

// DayOf truncates an instant to the UTC calendar day the ledger windows on.
// Day strings are compared by equality only, never ordered.
func DayOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Store manages guest usage records. Implementations must make ConsumeAtomic
// a single atomic step per guest ID: separate read-then-write calls would let
// two concurrent requests both observe count < limit and breach the cap.
type Store interface {
	// ConsumeAtomic applies the full check-and-increment for one guest:
	// create at count 1 when absent, reset on day rollover, increment while
	// under the limit. Returns the record as stored after the call and
	// whether the request was admitted. Denied requests are not incremented.
	ConsumeAtomic(ctx context.Context, guestID, day string, limit int) (*UsageRecord, bool, error)

	// Get retrieves the record for a guest, or nil when absent.
	Get(ctx context.Context, guestID string) (*UsageRecord, error)

	// List returns all usage records (admin tooling).
	List(ctx context.Context) ([]*UsageRecord, error)

	// Reset removes the record for a guest.
	Reset(ctx context.Context, guestID string) error

	// PurgeBefore removes records not touched since the cutoff and reports
	// how many were removed. Backends with native TTL may report zero.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// NewUsageRecord creates a UsageRecord with domain invariant validation.
func NewUsageRecord(guestID, day string) (*UsageRecord, error) {
	if guestID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "guest id cannot be empty")
	}
	if day == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "day cannot be empty")
	}
	return &UsageRecord{GuestID: guestID, Day: day, UpdatedAt: time.Now()}, nil
}
