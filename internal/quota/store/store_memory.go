// Package store provides quota ledger backends: in-memory for tests and
// single-node demos, PostgreSQL and Redis for production.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"scangate/internal/quota"
)

// InMemory implements quota.Store with a map guarded by one mutex.
// Holding the lock across the whole check-and-increment makes ConsumeAtomic
// atomic per guest ID.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]*quota.UsageRecord
}

// NewInMemory creates an empty in-memory ledger store.
func NewInMemory() *InMemory {
	return &InMemory{records: make(map[string]*quota.UsageRecord)}
}

func (s *InMemory) ConsumeAtomic(_ context.Context, guestID, day string, limit int) (*quota.UsageRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[guestID]
	if !exists {
		record = &quota.UsageRecord{GuestID: guestID, Day: day}
		s.records[guestID] = record
	}

	// Day rollover resets the window before the new request is counted.
	if record.Day != day {
		record.Day = day
		record.Count = 0
	}

	if record.Count >= limit {
		copied := *record
		return &copied, false, nil
	}

	record.Count++
	record.UpdatedAt = time.Now()
	copied := *record
	return &copied, true, nil
}

func (s *InMemory) Get(_ context.Context, guestID string) (*quota.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[guestID]
	if !exists {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (s *InMemory) List(_ context.Context) ([]*quota.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*quota.UsageRecord, 0, len(s.records))
	for _, record := range s.records {
		copied := *record
		records = append(records, &copied)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].GuestID < records[j].GuestID })
	return records, nil
}

func (s *InMemory) Reset(_ context.Context, guestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, guestID)
	return nil
}

func (s *InMemory) PurgeBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for guestID, record := range s.records {
		if record.UpdatedAt.Before(cutoff) {
			delete(s.records, guestID)
			purged++
		}
	}
	return purged, nil
}
