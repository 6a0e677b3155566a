// Package service contains the export job lifecycle manager. It owns every
// transition of an export job and is the only writer besides the tracker.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bookbloom/bookbloom/internal/artifact"
	"github.com/bookbloom/bookbloom/internal/export"
	"github.com/bookbloom/bookbloom/internal/model"
	"github.com/bookbloom/bookbloom/internal/tracker"
)

// DefaultArtifactTTL is how long a completed artifact stays downloadable.
const DefaultArtifactTTL = 7 * 24 * time.Hour

// BookSource is the read-only book data collaborator: a single-shot fetch of
// a point-in-time snapshot, no subscription to live edits.
type BookSource interface {
	BookSnapshot(ctx context.Context, bookID string) (*model.BookSnapshot, error)
}

// ExportService drives export jobs from submission to a terminal state.
type ExportService struct {
	books BookSource
	store artifact.Store
	jobs  *tracker.Tracker
	ttl   time.Duration
	log   logrus.FieldLogger

	now func() time.Time
}

// NewExportService wires the lifecycle manager to its collaborators. A ttl
// of zero selects the default artifact lifetime.
func NewExportService(books BookSource, store artifact.Store, jobs *tracker.Tracker, ttl time.Duration, log logrus.FieldLogger) *ExportService {
	if ttl <= 0 {
		ttl = DefaultArtifactTTL
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ExportService{
		books: books,
		store: store,
		jobs:  jobs,
		ttl:   ttl,
		log:   log,
		now:   time.Now,
	}
}

// Submit validates the request, creates a job, and runs it to a terminal
// state before returning the settled record. Validation failures are
// returned as errors and produce no job; every later failure is captured on
// the job itself, never propagated out. Each call creates an independent
// job — identical concurrent requests are not coalesced.
func (s *ExportService) Submit(ctx context.Context, req model.ExportRequest) (model.ExportJob, error) {
	vreq, err := export.Validate(req)
	if err != nil {
		return model.ExportJob{}, err
	}
	job := model.ExportJob{
		ID:        uuid.NewString(),
		BookID:    vreq.BookID,
		Format:    vreq.Format,
		Status:    model.StatusPending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.jobs.StartTracking(job); err != nil {
		return model.ExportJob{}, fmt.Errorf("register job: %w", err)
	}
	s.run(ctx, job.ID, vreq)
	settled, err := s.jobs.Get(job.ID)
	if err != nil {
		// Only reachable if cleanup raced the job away mid-call.
		return model.ExportJob{}, fmt.Errorf("job %s: %w", job.ID, err)
	}
	return settled, nil
}

func (s *ExportService) run(ctx context.Context, jobID string, req export.ValidatedRequest) {
	log := s.log.WithFields(logrus.Fields{
		"job_id":  jobID,
		"book_id": req.BookID,
		"format":  req.Format,
	})
	s.jobs.UpdateProgress(jobID, 5, model.StatusProcessing)

	book, err := s.books.BookSnapshot(ctx, req.BookID)
	if err != nil {
		log.WithError(err).Warn("export failed: fetch book")
		s.jobs.FailJob(jobID, fmt.Sprintf("fetch book: %v", err))
		return
	}
	s.jobs.UpdateProgress(jobID, 30, "")

	art, err := export.Render(book, req)
	if err != nil {
		log.WithError(err).Warn("export failed: render")
		s.jobs.FailJob(jobID, fmt.Sprintf("render: %v", err))
		return
	}
	s.jobs.UpdateProgress(jobID, 70, "")

	expiresAt := s.now().Add(s.ttl).UTC()
	key := jobID + "." + art.Extension
	ref, err := s.store.Put(ctx, key, art.Data, art.ContentType, expiresAt)
	if err != nil {
		// Storage failures may carry backend detail; keep the job message
		// generic and leave the cause in the logs.
		log.WithError(err).Error("export failed: artifact upload")
		s.jobs.FailJob(jobID, "artifact storage failed")
		return
	}
	s.jobs.UpdateProgress(jobID, 90, "")
	s.jobs.CompleteJob(jobID, ref, expiresAt)
	log.WithField("bytes", len(art.Data)).Info("export completed")
}

// Status returns the tracked job by id.
func (s *ExportService) Status(jobID string) (model.ExportJob, error) {
	return s.jobs.Get(jobID)
}

// History returns the book's jobs, newest first. History is process-memory
// only and resets on restart.
func (s *ExportService) History(bookID string) []model.ExportJob {
	return s.jobs.JobsForBook(bookID)
}

// Subscribe attaches a callback to a job's updates; see tracker.Subscribe.
func (s *ExportService) Subscribe(jobID string, cb tracker.Callback) func() {
	return s.jobs.Subscribe(jobID, cb)
}

// Cleanup evicts expired jobs and artifacts. Callers run it on a timer.
func (s *ExportService) Cleanup(ctx context.Context) {
	evicted := s.jobs.Cleanup()
	removed, err := s.store.RemoveExpired(ctx)
	if err != nil {
		s.log.WithError(err).Warn("artifact cleanup")
	}
	if evicted > 0 || removed > 0 {
		s.log.WithFields(logrus.Fields{"jobs": evicted, "artifacts": removed}).Info("cleanup swept expired exports")
	}
}
