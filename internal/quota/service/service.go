// Package service orchestrates the guest usage ledger: admission decisions,
// admin inspection, and retention.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scangate/internal/platform/events"
	"scangate/internal/platform/metrics"
	"scangate/internal/quota"
	dErrors "scangate/pkg/domain-errors"
	"scangate/pkg/requestcontext"
)

// Service evaluates and manages guest quota windows.
type Service struct {
	store          quota.Store
	limit          int
	logger         *slog.Logger
	auditPublisher events.Publisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher events.Publisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service enforcing the given daily limit.
func New(store quota.Store, limit int, opts ...Option) *Service {
	s := &Service{store: store, limit: limit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limit returns the configured daily admission cap.
func (s *Service) Limit() int {
	return s.limit
}

// CheckAndConsume applies the full admission decision for one guest request:
// resolve today's window from the request clock, then atomically count the
// request against it. A denied request consumes nothing.
func (s *Service) CheckAndConsume(ctx context.Context, guestID string) (*quota.Decision, error) {
	if guestID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "guest id is required")
	}

	day := quota.DayOf(requestcontext.Now(ctx))

	record, admitted, err := s.store.ConsumeAtomic(ctx, guestID, day, s.limit)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "quota check timed out")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "quota check failed")
	}

	decision := &quota.Decision{
		Admitted:  admitted,
		Count:     record.Count,
		Remaining: s.limit - record.Count,
		Limit:     s.limit,
		Day:       day,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}

	if !admitted {
		events.LogAudit(ctx, s.logger, s.auditPublisher, events.ActionQuotaExceeded, events.Event{
			Subject:  guestID,
			Decision: "rejected",
			Reason:   "quota_exceeded",
		})
		if s.metrics != nil {
			s.metrics.QuotaDeniedTotal.Inc()
		}
	}
	return decision, nil
}

// Usage returns the stored window for one guest, or nil when the guest has
// never consumed.
func (s *Service) Usage(ctx context.Context, guestID string) (*quota.UsageRecord, error) {
	if guestID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "guest id is required")
	}
	record, err := s.store.Get(ctx, guestID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load guest usage")
	}
	return record, nil
}

// List returns all usage windows for admin inspection.
func (s *Service) List(ctx context.Context) ([]*quota.UsageRecord, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list guest usage")
	}
	return records, nil
}

// Reset clears a guest's window and emits an audit event naming the admin
// who performed it.
func (s *Service) Reset(ctx context.Context, guestID string) error {
	if guestID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "guest id is required")
	}
	if err := s.store.Reset(ctx, guestID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset guest usage")
	}
	events.LogAudit(ctx, s.logger, s.auditPublisher, events.ActionQuotaReset, events.Event{
		Subject: guestID,
		Reason:  "admin_reset",
	})
	return nil
}

// PurgeBefore removes windows untouched since the cutoff.
func (s *Service) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	purged, err := s.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge guest usage")
	}
	if purged > 0 {
		events.LogAudit(ctx, s.logger, s.auditPublisher, events.ActionUsagePurged, events.Event{
			Reason: "retention",
		})
	}
	return purged, nil
}

// StartRetention purges stale windows on the given interval until ctx is
// cancelled. Purge failures are logged and the loop keeps running.
func (s *Service) StartRetention(ctx context.Context, interval time.Duration, retentionDays int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -retentionDays)
			purged, err := s.PurgeBefore(ctx, cutoff)
			if err != nil {
				if s.logger != nil {
					s.logger.ErrorContext(ctx, "retention purge failed", "error", err)
				}
				continue
			}
			if purged > 0 && s.logger != nil {
				s.logger.InfoContext(ctx, "retention purge completed", "purged", purged)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
