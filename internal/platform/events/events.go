// Package events carries the audit trail for admission decisions.
// Events are emitted from the gate and admin surfaces, logged structurally,
// and optionally published to Kafka for downstream consumers.
package events

import (
	"context"
	"log/slog"
	"time"

	"scangate/pkg/requestcontext"
)

// Action names for audit events.
const (
	ActionRequestAdmitted  = "request_admitted"
	ActionRequestRejected  = "request_rejected"
	ActionQuotaExceeded    = "quota_exceeded"
	ActionQuotaReset       = "quota_reset"
	ActionUsagePurged      = "usage_purged"
	ActionUserInfoAccessed = "userinfo_accessed"
)

// Event captures one security-relevant action. Subject is whichever identity
// the gate resolved: a guest ID for anonymous traffic, a user ID otherwise.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	IP        string    `json:"ip,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Publisher delivers audit events to an external sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
	Close()
}

// LogAudit logs an audit event to the structured logger and forwards it to
// the publisher when one is configured. Publish failures are logged, never
// propagated: the admission decision has already been made.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher Publisher, action string, event Event) {
	event.Action = action
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.IP == "" {
		event.IP = requestcontext.ClientIP(ctx)
	}

	if logger != nil {
		logger.InfoContext(ctx, action,
			"event", action,
			"log_type", "audit",
			"subject", event.Subject,
			"decision", event.Decision,
			"reason", event.Reason,
			"request_id", event.RequestID,
		)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "audit publish failed", "error", err, "event", action)
	}
}
