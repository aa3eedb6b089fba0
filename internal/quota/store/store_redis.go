package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"scangate/internal/quota"
)

var consumeDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "scangate_ledger_consume_duration_ms",
	Help:    "Latency of Redis check-and-consume calls in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const (
	// Redis key prefix for guest usage counters.
	usageKeyPrefix = "quota:usage:"

	// usageKeyTTL keeps a counter around long enough for admin inspection
	// after its window closes; expiry doubles as the retention policy.
	usageKeyTTL = 48 * time.Hour
)

// consumeScript performs the check-and-increment in one server-side step.
// It returns the positive count when admitted and the negated count when the
// limit is already reached (the counter is not incremented further).
var consumeScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current and tonumber(current) >= tonumber(ARGV[1]) then
	return -tonumber(current)
end
current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return current
`)

// Redis implements quota.Store with one counter key per guest and day.
// Day rollover is structural: a new day is a new key, and stale keys expire
// on their own.
type Redis struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed ledger store.
// The client lifecycle is managed externally.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func usageKey(guestID, day string) string {
	return usageKeyPrefix + guestID + ":" + day
}

func (s *Redis) ConsumeAtomic(ctx context.Context, guestID, day string, limit int) (*quota.UsageRecord, bool, error) {
	start := time.Now()
	defer func() {
		consumeDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	result, err := consumeScript.Run(ctx, s.client,
		[]string{usageKey(guestID, day)},
		limit, int(usageKeyTTL.Seconds()),
	).Int()
	if err != nil {
		return nil, false, fmt.Errorf("consume guest usage: %w", err)
	}

	record := &quota.UsageRecord{GuestID: guestID, Day: day, UpdatedAt: time.Now()}
	if result < 0 {
		record.Count = -result
		return record, false, nil
	}
	record.Count = result
	return record, true, nil
}

func (s *Redis) Get(ctx context.Context, guestID string) (*quota.UsageRecord, error) {
	keys, err := s.scanKeys(ctx, usageKeyPrefix+guestID+":*")
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	// Day strings sort lexically, so the highest key is the latest window.
	latest := keys[0]
	for _, key := range keys[1:] {
		if key > latest {
			latest = key
		}
	}
	return s.recordFromKey(ctx, latest)
}

func (s *Redis) List(ctx context.Context) ([]*quota.UsageRecord, error) {
	keys, err := s.scanKeys(ctx, usageKeyPrefix+"*")
	if err != nil {
		return nil, err
	}

	records := make([]*quota.UsageRecord, 0, len(keys))
	for _, key := range keys {
		record, err := s.recordFromKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if record != nil {
			records = append(records, record)
		}
	}
	return records, nil
}

func (s *Redis) Reset(ctx context.Context, guestID string) error {
	keys, err := s.scanKeys(ctx, usageKeyPrefix+guestID+":*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("reset guest usage: %w", err)
	}
	return nil
}

// PurgeBefore is a no-op: key TTLs implement retention natively.
func (s *Redis) PurgeBefore(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (s *Redis) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan guest usage keys: %w", err)
	}
	return keys, nil
}

func (s *Redis) recordFromKey(ctx context.Context, key string) (*quota.UsageRecord, error) {
	count, err := s.client.Get(ctx, key).Int()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get guest usage: %w", err)
	}

	suffix := strings.TrimPrefix(key, usageKeyPrefix)
	sep := strings.LastIndex(suffix, ":")
	if sep < 0 {
		return nil, fmt.Errorf("malformed usage key %q", key)
	}
	return &quota.UsageRecord{
		GuestID: suffix[:sep],
		Count:   count,
		Day:     suffix[sep+1:],
	}, nil
}
