package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"scangate/internal/quota"
)

// Postgres persists guest usage records in PostgreSQL.
// ConsumeAtomic is one conditional upsert so concurrent requests for the same
// guest cannot both slip under the limit (no separate read-then-write).
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) ConsumeAtomic(ctx context.Context, guestID, day string, limit int) (*quota.UsageRecord, bool, error) {
	// A single statement handles creation, day rollover, and the bounded
	// increment. The WHERE clause blocks the update once today's count has
	// reached the limit, so a denied request never increments.
	query := `
		INSERT INTO guest_usage (guest_id, count, day, updated_at)
		VALUES ($1, 1, $2, NOW())
		ON CONFLICT (guest_id) DO UPDATE SET
			count = CASE WHEN guest_usage.day <> $2 THEN 1 ELSE guest_usage.count + 1 END,
			day = $2,
			updated_at = NOW()
		WHERE guest_usage.day <> $2 OR guest_usage.count < $3
		RETURNING guest_id, count, day, updated_at
	`
	record, err := scanUsage(s.db.QueryRowContext(ctx, query, guestID, day, limit))
	if err == nil {
		return record, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("consume guest usage: %w", err)
	}

	// The upsert matched nothing: today's count is already at the limit.
	record, err = s.Get(ctx, guestID)
	if err != nil {
		return nil, false, err
	}
	if record == nil {
		// The record was reset concurrently; treat as denied for this
		// request, the next one will re-evaluate.
		return &quota.UsageRecord{GuestID: guestID, Count: limit, Day: day}, false, nil
	}
	return record, false, nil
}

func (s *Postgres) Get(ctx context.Context, guestID string) (*quota.UsageRecord, error) {
	query := `
		SELECT guest_id, count, day, updated_at
		FROM guest_usage
		WHERE guest_id = $1
	`
	record, err := scanUsage(s.db.QueryRowContext(ctx, query, guestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get guest usage: %w", err)
	}
	return record, nil
}

func (s *Postgres) List(ctx context.Context) ([]*quota.UsageRecord, error) {
	query := `
		SELECT guest_id, count, day, updated_at
		FROM guest_usage
		ORDER BY guest_id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list guest usage: %w", err)
	}
	defer rows.Close()

	var records []*quota.UsageRecord
	for rows.Next() {
		record, err := scanUsage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guest usage: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate guest usage: %w", err)
	}
	return records, nil
}

func (s *Postgres) Reset(ctx context.Context, guestID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM guest_usage WHERE guest_id = $1`, guestID); err != nil {
		return fmt.Errorf("reset guest usage: %w", err)
	}
	return nil
}

func (s *Postgres) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM guest_usage WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge guest usage: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge guest usage rows affected: %w", err)
	}
	return int(rows), nil
}

type usageRow interface {
	Scan(dest ...any) error
}

func scanUsage(row usageRow) (*quota.UsageRecord, error) {
	var record quota.UsageRecord
	if err := row.Scan(&record.GuestID, &record.Count, &record.Day, &record.UpdatedAt); err != nil {
		return nil, err
	}
	return &record, nil
}
