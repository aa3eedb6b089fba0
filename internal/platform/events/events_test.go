package events

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scangate/pkg/requestcontext"
)

func TestLogAudit_EnrichesFromContext(t *testing.T) {
	ctx := requestcontext.WithRequestID(context.Background(), "req-123")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.7", "Chrome")

	publisher := NewInMemoryPublisher()
	LogAudit(ctx, nil, publisher, ActionQuotaExceeded, Event{
		Subject:  "guest-a",
		Decision: "rejected",
		Reason:   "quota_exceeded",
	})

	emitted := publisher.Events()
	require.Len(t, emitted, 1)
	assert.Equal(t, ActionQuotaExceeded, emitted[0].Action)
	assert.Equal(t, "req-123", emitted[0].RequestID)
	assert.Equal(t, "203.0.113.7", emitted[0].IP)
	assert.False(t, emitted[0].Timestamp.IsZero())
}

func TestLogAudit_NilPublisherLogsOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogAudit(context.Background(), logger, nil, ActionRequestAdmitted, Event{Subject: "guest-a"})

	assert.Contains(t, buf.String(), "request_admitted")
	assert.Contains(t, buf.String(), "log_type=audit")
}

func TestLogAudit_PreservesExplicitFields(t *testing.T) {
	ctx := requestcontext.WithRequestID(context.Background(), "req-ambient")

	publisher := NewInMemoryPublisher()
	LogAudit(ctx, nil, publisher, ActionQuotaReset, Event{
		Subject:   "guest-a",
		RequestID: "req-explicit",
	})

	emitted := publisher.Events()
	require.Len(t, emitted, 1)
	assert.Equal(t, "req-explicit", emitted[0].RequestID)
}
