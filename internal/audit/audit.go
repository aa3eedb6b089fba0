// Package audit accepts site-audit requests once the gate has admitted them.
// Dispatch is asynchronous: the handler queues a job and replies immediately;
// crawling and scoring happen in a separate pipeline.
package audit

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"

	dErrors "scangate/pkg/domain-errors"
	"scangate/pkg/requestcontext"
)

// JobStatus tracks a queued audit through its lifecycle.
type JobStatus string

const (
	StatusQueued  JobStatus = "queued"
	StatusRunning JobStatus = "running"
	StatusDone    JobStatus = "done"
	StatusFailed  JobStatus = "failed"
)

// Job is one accepted site-audit request.
type Job struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Status      JobStatus `json:"status"`
	RequestedBy string    `json:"requested_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Dispatcher validates and queues audit jobs.
type Dispatcher struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	logger *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		jobs:   make(map[string]*Job),
		logger: logger,
	}
}

// Enqueue validates the target URL and queues an audit job. The requesting
// identity is taken from the context: the user ID when authenticated, the
// guest ID otherwise.
func (d *Dispatcher) Enqueue(ctx context.Context, rawURL string) (*Job, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "url is required")
	}
	if !govalidator.IsURL(rawURL) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "url is not valid")
	}

	requestedBy := requestcontext.UserID(ctx)
	if requestedBy == "" {
		requestedBy = requestcontext.GuestID(ctx)
	}

	job := &Job{
		ID:          uuid.NewString(),
		URL:         rawURL,
		Status:      StatusQueued,
		RequestedBy: requestedBy,
		CreatedAt:   time.Now().UTC(),
	}

	d.mu.Lock()
	d.jobs[job.ID] = job
	d.mu.Unlock()

	if d.logger != nil {
		d.logger.InfoContext(ctx, "audit job queued",
			"job_id", job.ID,
			"requested_by", requestedBy,
		)
	}

	copied := *job
	return &copied, nil
}

// Job returns one queued job by ID.
func (d *Dispatcher) Job(_ context.Context, id string) (*Job, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	job, exists := d.jobs[id]
	if !exists {
		return nil, dErrors.New(dErrors.CodeNotFound, "audit job not found")
	}
	copied := *job
	return &copied, nil
}

// Jobs lists queued jobs, newest first.
func (d *Dispatcher) Jobs(_ context.Context) []*Job {
	d.mu.RLock()
	defer d.mu.RUnlock()

	jobs := make([]*Job, 0, len(d.jobs))
	for _, job := range d.jobs {
		copied := *job
		jobs = append(jobs, &copied)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs
}
