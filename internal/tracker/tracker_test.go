package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookbloom/bookbloom/internal/model"
)

func newJob(id, bookID string) model.ExportJob {
	return model.ExportJob{
		ID:        id,
		BookID:    bookID,
		Format:    model.FormatTXT,
		Status:    model.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

func TestStartTrackingRejectsDuplicates(t *testing.T) {
	tr := New()
	require.NoError(t, tr.StartTracking(newJob("j1", "b1")))
	require.ErrorIs(t, tr.StartTracking(newJob("j1", "b1")), ErrDuplicateJob)
}

func TestGetUnknownJob(t *testing.T) {
	tr := New()
	_, err := tr.Get("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatesOnUnknownJobAreNoOps(t *testing.T) {
	tr := New()
	// None of these may panic or create records.
	tr.UpdateProgress("ghost", 50, model.StatusProcessing)
	tr.CompleteJob("ghost", "/exports/x.txt", time.Now().Add(time.Hour))
	tr.FailJob("ghost", "boom")
	_, err := tr.Get("ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSubscriberSeesMonotonicProgressInOrder(t *testing.T) {
	tr := New()
	require.NoError(t, tr.StartTracking(newJob("j1", "b1")))

	var seen []model.ExportJob
	unsub := tr.Subscribe("j1", func(job model.ExportJob) {
		seen = append(seen, job)
	})
	defer unsub()

	tr.UpdateProgress("j1", 10, model.StatusProcessing)
	tr.UpdateProgress("j1", 40, "")
	tr.UpdateProgress("j1", 20, "") // lower value must not regress
	tr.UpdateProgress("j1", 90, "")
	tr.CompleteJob("j1", "/exports/j1.txt", time.Now().Add(time.Hour))

	require.NotEmpty(t, seen)
	prev := -1
	for _, job := range seen {
		assert.GreaterOrEqual(t, job.Progress, prev)
		prev = job.Progress
	}
	final := seen[len(seen)-1]
	assert.Equal(t, model.StatusCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)

	// Exactly one terminal notification.
	terminals := 0
	for _, job := range seen {
		if job.Status.Terminal() {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
}

func TestTerminalJobsAreImmutable(t *testing.T) {
	tr := New()
	require.NoError(t, tr.StartTracking(newJob("j1", "b1")))
	tr.UpdateProgress("j1", 30, model.StatusProcessing)
	tr.FailJob("j1", "render: chapter not found")

	tr.UpdateProgress("j1", 99, "")
	tr.CompleteJob("j1", "/exports/j1.txt", time.Now().Add(time.Hour))

	job, err := tr.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, job.Status)
	// Progress keeps its last reported value on failure.
	assert.Equal(t, 30, job.Progress)
	assert.Empty(t, job.DownloadReference)
	assert.Nil(t, job.ExpiresAt)
}

func TestNoPrematureFields(t *testing.T) {
	tr := New()
	require.NoError(t, tr.StartTracking(newJob("j1", "b1")))
	tr.UpdateProgress("j1", 50, model.StatusProcessing)

	job, err := tr.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, job.Status)
	assert.Empty(t, job.DownloadReference)
	assert.Nil(t, job.ExpiresAt)
	assert.Empty(t, job.Error)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	tr := New()
	require.NoError(t, tr.StartTracking(newJob("j1", "b1")))

	var first, second int
	unsub1 := tr.Subscribe("j1", func(model.ExportJob) { first++ })
	unsub2 := tr.Subscribe("j1", func(model.ExportJob) { second++ })

	tr.UpdateProgress("j1", 10, model.StatusProcessing)
	unsub1()
	unsub1() // second call must not panic or touch other subscribers
	tr.UpdateProgress("j1", 20, "")
	unsub2()

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestJobsForBookNewestFirst(t *testing.T) {
	tr := New()
	base := time.Now().UTC()
	for i, id := range []string{"j1", "j2", "j3"} {
		job := newJob(id, "b1")
		job.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, tr.StartTracking(job))
	}
	other := newJob("jx", "b2")
	require.NoError(t, tr.StartTracking(other))

	jobs := tr.JobsForBook("b1")
	require.Len(t, jobs, 3)
	assert.Equal(t, "j3", jobs[0].ID)
	assert.Equal(t, "j2", jobs[1].ID)
	assert.Equal(t, "j1", jobs[2].ID)
}

func TestCleanupEvictsExpiredJobs(t *testing.T) {
	tr := New()
	require.NoError(t, tr.StartTracking(newJob("expired", "b1")))
	require.NoError(t, tr.StartTracking(newJob("fresh", "b1")))
	require.NoError(t, tr.StartTracking(newJob("running", "b1")))

	tr.UpdateProgress("expired", 10, model.StatusProcessing)
	tr.CompleteJob("expired", "/exports/expired.txt", time.Now().Add(-time.Minute))
	tr.UpdateProgress("fresh", 10, model.StatusProcessing)
	tr.CompleteJob("fresh", "/exports/fresh.txt", time.Now().Add(time.Hour))
	tr.UpdateProgress("running", 10, model.StatusProcessing)

	assert.Equal(t, 1, tr.Cleanup())

	_, err := tr.Get("expired")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = tr.Get("fresh")
	require.NoError(t, err)
	_, err = tr.Get("running")
	require.NoError(t, err)

	ids := make([]string, 0)
	for _, job := range tr.JobsForBook("b1") {
		ids = append(ids, job.ID)
	}
	assert.NotContains(t, ids, "expired")
}

func TestReadsReturnCopies(t *testing.T) {
	tr := New()
	require.NoError(t, tr.StartTracking(newJob("j1", "b1")))
	job, err := tr.Get("j1")
	require.NoError(t, err)
	job.Progress = 99
	job.Status = model.StatusCompleted

	stored, err := tr.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Equal(t, 0, stored.Progress)
}
