package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"scangate/internal/principal"
	dErrors "scangate/pkg/domain-errors"
)

// Postgres persists principals in PostgreSQL.
// This store is pure I/O; invariants live on the principal model.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed principal store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*principal.Principal, error) {
	query := `
		SELECT id, email, role, status, password_hash, created_at
		FROM principals
		WHERE id = $1
	`
	var p principal.Principal
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Email, &p.Role, &p.Status, &p.PasswordHash, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "principal not found")
		}
		return nil, fmt.Errorf("find principal: %w", err)
	}
	return &p, nil
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*principal.Principal, error) {
	query := `
		SELECT id, email, role, status, password_hash, created_at
		FROM principals
		WHERE email = $1
	`
	var p principal.Principal
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&p.ID, &p.Email, &p.Role, &p.Status, &p.PasswordHash, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dErrors.New(dErrors.CodeNotFound, "principal not found")
		}
		return nil, fmt.Errorf("find principal by email: %w", err)
	}
	return &p, nil
}

func (s *Postgres) Create(ctx context.Context, p *principal.Principal) error {
	if p == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "principal is required")
	}
	query := `
		INSERT INTO principals (id, email, role, status, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		p.ID, p.Email, string(p.Role), string(p.Status), p.PasswordHash, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create principal: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create principal rows affected: %w", err)
	}
	if rows == 0 {
		return dErrors.New(dErrors.CodeConflict, "principal already exists")
	}
	return nil
}
