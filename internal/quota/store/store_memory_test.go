package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemory_ConsumeAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	t.Run("admits up to the limit then denies", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			record, admitted, err := s.ConsumeAtomic(ctx, "guest-a", "2026-08-31", 3)
			require.NoError(t, err)
			assert.True(t, admitted)
			assert.Equal(t, i, record.Count)
		}

		record, admitted, err := s.ConsumeAtomic(ctx, "guest-a", "2026-08-31", 3)
		require.NoError(t, err)
		assert.False(t, admitted)
		assert.Equal(t, 3, record.Count, "denied request must not increment")
	})

	t.Run("guests are counted independently", func(t *testing.T) {
		record, admitted, err := s.ConsumeAtomic(ctx, "guest-b", "2026-08-31", 3)
		require.NoError(t, err)
		assert.True(t, admitted)
		assert.Equal(t, 1, record.Count)
	})

	t.Run("day rollover resets the window", func(t *testing.T) {
		record, admitted, err := s.ConsumeAtomic(ctx, "guest-a", "2026-09-01", 3)
		require.NoError(t, err)
		assert.True(t, admitted)
		assert.Equal(t, 1, record.Count)
		assert.Equal(t, "2026-09-01", record.Day)
	})
}

func TestInMemory_ConsumeAtomic_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	const workers = 50
	const limit = 3

	type outcome struct {
		admitted bool
		err      error
	}

	// Assertions happen after wg.Wait: failing a test from a worker
	// goroutine is unsafe.
	var wg sync.WaitGroup
	outcomes := make(chan outcome, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, admitted, err := s.ConsumeAtomic(ctx, "guest-race", "2026-08-31", limit)
			outcomes <- outcome{admitted: admitted, err: err}
		}()
	}
	wg.Wait()
	close(outcomes)

	admittedCount := 0
	for o := range outcomes {
		require.NoError(t, o.err)
		if o.admitted {
			admittedCount++
		}
	}
	assert.Equal(t, limit, admittedCount, "exactly limit requests may win the race")

	record, err := s.Get(ctx, "guest-race")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, limit, record.Count)
}

func TestInMemory_GetAndList(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	record, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, record)

	for _, guestID := range []string{"guest-c", "guest-a", "guest-b"} {
		_, _, err := s.ConsumeAtomic(ctx, guestID, "2026-08-31", 3)
		require.NoError(t, err)
	}

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "guest-a", records[0].GuestID)
	assert.Equal(t, "guest-b", records[1].GuestID)
	assert.Equal(t, "guest-c", records[2].GuestID)
}

func TestInMemory_Get_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	_, _, err := s.ConsumeAtomic(ctx, "guest-a", "2026-08-31", 3)
	require.NoError(t, err)

	record, err := s.Get(ctx, "guest-a")
	require.NoError(t, err)
	record.Count = 99

	again, err := s.Get(ctx, "guest-a")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Count)
}

func TestInMemory_Reset(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	for i := 0; i < 3; i++ {
		_, _, err := s.ConsumeAtomic(ctx, "guest-a", "2026-08-31", 3)
		require.NoError(t, err)
	}
	_, admitted, err := s.ConsumeAtomic(ctx, "guest-a", "2026-08-31", 3)
	require.NoError(t, err)
	require.False(t, admitted)

	require.NoError(t, s.Reset(ctx, "guest-a"))

	record, admitted, err := s.ConsumeAtomic(ctx, "guest-a", "2026-08-31", 3)
	require.NoError(t, err)
	assert.True(t, admitted)
	assert.Equal(t, 1, record.Count)
}

func TestInMemory_PurgeBefore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	for i := 0; i < 5; i++ {
		_, _, err := s.ConsumeAtomic(ctx, fmt.Sprintf("guest-%d", i), "2026-08-31", 3)
		require.NoError(t, err)
	}

	purged, err := s.PurgeBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, purged)

	purged, err = s.PurgeBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 5, purged)

	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}
