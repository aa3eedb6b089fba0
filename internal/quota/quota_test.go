package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "scangate/pkg/domain-errors"
)

func TestDayOf(t *testing.T) {
	t.Run("truncates to UTC calendar day", func(t *testing.T) {
		at := time.Date(2026, 8, 31, 15, 4, 5, 0, time.UTC)
		assert.Equal(t, "2026-08-31", DayOf(at))
	})

	t.Run("normalizes offsets to UTC", func(t *testing.T) {
		// 23:30 in UTC-5 is already the next day in UTC.
		loc := time.FixedZone("UTC-5", -5*60*60)
		at := time.Date(2026, 8, 31, 23, 30, 0, 0, loc)
		assert.Equal(t, "2026-09-01", DayOf(at))
	})

	t.Run("same day compares equal across instants", func(t *testing.T) {
		morning := time.Date(2026, 8, 31, 0, 0, 1, 0, time.UTC)
		night := time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)
		assert.Equal(t, DayOf(morning), DayOf(night))
	})
}

func TestNewUsageRecord(t *testing.T) {
	record, err := NewUsageRecord("guest-a", "2026-08-31")
	require.NoError(t, err)
	assert.Equal(t, "guest-a", record.GuestID)
	assert.Zero(t, record.Count)

	_, err = NewUsageRecord("", "2026-08-31")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvariantViolation, dErrors.CodeOf(err))

	_, err = NewUsageRecord("guest-a", "")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvariantViolation, dErrors.CodeOf(err))
}
