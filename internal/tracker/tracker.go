// Package tracker contains the in-memory export job registry and notifier.
// It is the single owner of job state between submission and eviction.
package tracker

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bookbloom/bookbloom/internal/model"
)

var (
	// ErrNotFound is exported so callers can compare with errors.Is.
	ErrNotFound = errors.New("job not found")
	// ErrDuplicateJob guards against tracking the same job id twice. Unique
	// id generation should make this unreachable, but the invariant is
	// cheap to enforce.
	ErrDuplicateJob = errors.New("job already tracked")
)

// Callback receives a copy of the job after every applied update. Callbacks
// for one job fire synchronously, in the order updates were applied.
type Callback func(job model.ExportJob)

// Tracker is a mutex-guarded registry of live export jobs. RWMutex lets
// status polls proceed concurrently while updates take the write lock.
// Updates replace the whole job record, so a reader never observes a
// partially-applied change.
type Tracker struct {
	mu      sync.RWMutex
	jobs    map[string]*model.ExportJob
	subs    map[string]map[int]Callback
	nextSub int

	// now is swappable in tests to exercise expiry without sleeping.
	now func() time.Time
}

// New constructs an empty Tracker.
func New() *Tracker {
	return &Tracker{
		jobs: make(map[string]*model.ExportJob),
		subs: make(map[string]map[int]Callback),
		now:  time.Now,
	}
}

// StartTracking registers a new job. The stored record is a copy of initial,
// so the caller's value cannot alias tracker state.
func (t *Tracker) StartTracking(initial model.ExportJob) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.jobs[initial.ID]; ok {
		return ErrDuplicateJob
	}
	job := initial.Clone()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = t.now().UTC()
	}
	t.jobs[initial.ID] = &job
	return nil
}

// UpdateProgress merges a progress value and an optional status ("" keeps
// the current one) into the job. Unknown ids are a no-op so updates racing
// with cleanup never fail. Progress never decreases and terminal jobs are
// immutable.
func (t *Tracker) UpdateProgress(jobID string, progress int, status model.JobStatus) {
	t.apply(jobID, func(job *model.ExportJob) bool {
		if job.Status.Terminal() {
			return false
		}
		if status != "" && status != job.Status {
			if !job.Status.CanTransition(status) {
				return false
			}
			job.Status = status
		}
		if progress > job.Progress {
			if progress > 100 {
				progress = 100
			}
			job.Progress = progress
		}
		return true
	})
}

// CompleteJob transitions the job to its completed terminal state, records
// the artifact locator and expiry, and forces progress to 100.
func (t *Tracker) CompleteJob(jobID, downloadReference string, expiresAt time.Time) {
	t.apply(jobID, func(job *model.ExportJob) bool {
		if !job.Status.CanTransition(model.StatusCompleted) {
			return false
		}
		job.Status = model.StatusCompleted
		job.Progress = 100
		job.DownloadReference = downloadReference
		exp := expiresAt.UTC()
		job.ExpiresAt = &exp
		return true
	})
}

// FailJob transitions the job to its failed terminal state. Progress keeps
// its last reported value so callers can see how far the job got.
func (t *Tracker) FailJob(jobID, message string) {
	t.apply(jobID, func(job *model.ExportJob) bool {
		if !job.Status.CanTransition(model.StatusFailed) {
			return false
		}
		job.Status = model.StatusFailed
		job.Error = message
		return true
	})
}

// apply runs mutate against a copy of the stored job and swaps the copy in
// if mutate reports a change, then notifies subscribers outside the lock.
func (t *Tracker) apply(jobID string, mutate func(*model.ExportJob) bool) {
	t.mu.Lock()
	cur, ok := t.jobs[jobID]
	if !ok {
		t.mu.Unlock()
		return
	}
	next := cur.Clone()
	if !mutate(&next) {
		t.mu.Unlock()
		return
	}
	t.jobs[jobID] = &next
	snapshot := next.Clone()
	cbs := make([]Callback, 0, len(t.subs[jobID]))
	ids := make([]int, 0, len(t.subs[jobID]))
	for id := range t.subs[jobID] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		cbs = append(cbs, t.subs[jobID][id])
	}
	t.mu.Unlock()
	// Callbacks run without the lock so a subscriber may call back into the
	// tracker. Per-job updates are applied sequentially by the lifecycle
	// manager, which preserves in-order delivery.
	for _, cb := range cbs {
		cb(snapshot)
	}
}

// Subscribe registers a callback for one job and returns the function that
// removes it. Unsubscribing is idempotent and does not affect other
// subscribers of the same job.
func (t *Tracker) Subscribe(jobID string, cb Callback) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSub
	t.nextSub++
	if t.subs[jobID] == nil {
		t.subs[jobID] = make(map[int]Callback)
	}
	t.subs[jobID][id] = cb
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if set, ok := t.subs[jobID]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(t.subs, jobID)
			}
		}
	}
}

// Get returns a copy of the tracked job.
func (t *Tracker) Get(jobID string) (model.ExportJob, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[jobID]
	if !ok {
		return model.ExportJob{}, ErrNotFound
	}
	return job.Clone(), nil
}

// JobsForBook returns every tracked job for the book, newest first.
func (t *Tracker) JobsForBook(bookID string) []model.ExportJob {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.ExportJob, 0)
	for _, job := range t.jobs {
		if job.BookID == bookID {
			out = append(out, job.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Cleanup evicts jobs whose artifact expiry has passed, along with their
// subscribers, and returns how many were removed. The caller drives the
// schedule; the tracker never self-schedules.
func (t *Tracker) Cleanup() int {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	evicted := 0
	for id, job := range t.jobs {
		if job.Expired(now) {
			delete(t.jobs, id)
			delete(t.subs, id)
			evicted++
		}
	}
	return evicted
}
