//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"scangate/internal/quota/store"
	"scangate/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.Redis
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

// TestConcurrentConsume verifies the Lua script serializes check-and-increment
// so concurrent requests cannot breach the limit.
func (s *RedisStoreSuite) TestConcurrentConsume() {
	ctx := context.Background()
	const goroutines = 50
	const limit = 3

	var wg sync.WaitGroup
	var admittedCount atomic.Int32

	// Errors are collected and asserted after wg.Wait: failing a test from
	// a worker goroutine is unsafe.
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, admitted, err := s.store.ConsumeAtomic(ctx, "guest-race", "2026-08-31", limit)
			if err != nil {
				errs <- err
				return
			}
			if admitted {
				admittedCount.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	s.Equal(int32(limit), admittedCount.Load())

	record, err := s.store.Get(ctx, "guest-race")
	s.Require().NoError(err)
	s.Require().NotNil(record)
	s.Equal(limit, record.Count)
}

// TestSequentialConsume verifies the deny branch reports the current count
// without incrementing.
func (s *RedisStoreSuite) TestSequentialConsume() {
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		record, admitted, err := s.store.ConsumeAtomic(ctx, "guest-a", "2026-08-31", 3)
		s.Require().NoError(err)
		s.True(admitted)
		s.Equal(i, record.Count)
	}

	record, admitted, err := s.store.ConsumeAtomic(ctx, "guest-a", "2026-08-31", 3)
	s.Require().NoError(err)
	s.False(admitted)
	s.Equal(3, record.Count)
}

// TestDayRollover verifies a new day starts a fresh counter key.
func (s *RedisStoreSuite) TestDayRollover() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := s.store.ConsumeAtomic(ctx, "guest-a", "2026-08-31", 3)
		s.Require().NoError(err)
	}

	record, admitted, err := s.store.ConsumeAtomic(ctx, "guest-a", "2026-09-01", 3)
	s.Require().NoError(err)
	s.True(admitted)
	s.Equal(1, record.Count)
	s.Equal("2026-09-01", record.Day)

	// Get reports the latest window.
	record, err = s.store.Get(ctx, "guest-a")
	s.Require().NoError(err)
	s.Require().NotNil(record)
	s.Equal("2026-09-01", record.Day)
	s.Equal(1, record.Count)
}

// TestReset removes all windows for a guest.
func (s *RedisStoreSuite) TestReset() {
	ctx := context.Background()

	_, _, err := s.store.ConsumeAtomic(ctx, "guest-a", "2026-08-31", 3)
	s.Require().NoError(err)
	_, _, err = s.store.ConsumeAtomic(ctx, "guest-a", "2026-09-01", 3)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Reset(ctx, "guest-a"))

	record, err := s.store.Get(ctx, "guest-a")
	s.Require().NoError(err)
	s.Nil(record)
}

// TestList enumerates counters across guests and days.
func (s *RedisStoreSuite) TestList() {
	ctx := context.Background()

	_, _, err := s.store.ConsumeAtomic(ctx, "guest-a", "2026-08-31", 3)
	s.Require().NoError(err)
	_, _, err = s.store.ConsumeAtomic(ctx, "guest-b", "2026-08-31", 3)
	s.Require().NoError(err)

	records, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Len(records, 2)
}

// TestCounterHasTTL verifies expiry is set so retention is automatic.
func (s *RedisStoreSuite) TestCounterHasTTL() {
	ctx := context.Background()

	_, _, err := s.store.ConsumeAtomic(ctx, "guest-a", "2026-08-31", 3)
	s.Require().NoError(err)

	ttl, err := s.redis.Client.TTL(ctx, "quota:usage:guest-a:2026-08-31").Result()
	s.Require().NoError(err)
	s.Positive(ttl)
}
