package sync

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// JobRegistry
// ---------------------------------------------------------------------------

// JobRegistry tracks live and recently finished jobs in memory so job status
// can be served without a database round trip. History is bounded: once the
// limit is reached the oldest terminal job is evicted first.
type JobRegistry struct {
	mu      sync.RWMutex
	jobs    map[uuid.UUID]*trackedJob
	order   []uuid.UUID
	maxJobs int
}

type trackedJob struct {
	job    *integration.SyncJob
	cancel context.CancelFunc
}

// NewJobRegistry creates a registry keeping at most maxJobs entries.
func NewJobRegistry(maxJobs int) *JobRegistry {
	if maxJobs <= 0 {
		maxJobs = 256
	}
	return &JobRegistry{
		jobs:    make(map[uuid.UUID]*trackedJob),
		maxJobs: maxJobs,
	}
}

// Add registers a job together with the cancel function of its run context.
func (r *JobRegistry) Add(job *integration.SyncJob, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = &trackedJob{job: job, cancel: cancel}
	r.order = append(r.order, job.ID)
	r.evictLocked()
}

// evictLocked drops the oldest terminal jobs until the registry fits. Live
// jobs are never evicted.
func (r *JobRegistry) evictLocked() {
	for len(r.jobs) > r.maxJobs {
		evicted := false
		for i, id := range r.order {
			t, ok := r.jobs[id]
			if !ok {
				r.order = append(r.order[:i], r.order[i+1:]...)
				evicted = true
				break
			}
			if t.job.Status.Terminal() {
				delete(r.jobs, id)
				r.order = append(r.order[:i], r.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			return
		}
	}
}

// Snapshot returns a copy of the job state, safe to read concurrently with
// the run updating it.
func (r *JobRegistry) Snapshot(id uuid.UUID) (integration.SyncJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.jobs[id]
	if !ok {
		return integration.SyncJob{}, false
	}
	return *t.job, true
}

// Update applies fn to the tracked job under the registry lock.
func (r *JobRegistry) Update(id uuid.UUID, fn func(*integration.SyncJob)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.jobs[id]; ok {
		fn(t.job)
	}
}

// Cancel signals the run context of a live job. It returns false when the
// job is unknown or already terminal.
func (r *JobRegistry) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.jobs[id]
	if !ok || t.job.Status.Terminal() {
		return false
	}
	if t.cancel != nil {
		t.cancel()
	}
	return true
}

// Recent returns snapshots of the most recently added jobs, newest first.
func (r *JobRegistry) Recent(limit int) []integration.SyncJob {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 || limit > len(r.order) {
		limit = len(r.order)
	}
	out := make([]integration.SyncJob, 0, limit)
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		if t, ok := r.jobs[r.order[i]]; ok {
			out = append(out, *t.job)
		}
	}
	return out
}
