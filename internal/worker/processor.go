package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/bookbloom/bookbloom/internal/artifact"
	"github.com/bookbloom/bookbloom/internal/queue"
	"github.com/bookbloom/bookbloom/internal/repository"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	repo  *repository.BookRepository
	store *artifact.S3Store
	log   logrus.FieldLogger
}

// NewProcessor constructs a worker processor.
func NewProcessor(repo *repository.BookRepository, store *artifact.S3Store, log logrus.FieldLogger) *Processor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Processor{repo: repo, store: store, log: log}
}

// Handler registers the import and cleanup handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ImportManuscriptTask, p.handleImport)
	mux.HandleFunc(queue.CleanupArtifactsTask, p.handleCleanup)
	return mux
}

func (p *Processor) handleImport(ctx context.Context, task *asynq.Task) error {
	var payload queue.ImportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	log := p.log.WithFields(logrus.Fields{"book_id": payload.BookID, "object": payload.ObjectKey})
	data, err := p.store.DownloadRaw(ctx, payload.ObjectKey)
	if err != nil {
		log.WithError(err).Warn("import: download failed")
		return err
	}
	text, err := ExtractText(data)
	if err != nil {
		log.WithError(err).Warn("import: extract failed")
		return err
	}
	chapters := SplitChapters(text)
	if len(chapters) == 0 {
		log.Warn("import: manuscript contained no text")
		return nil
	}
	if err := p.repo.AppendChapters(ctx, payload.BookID, chapters); err != nil {
		log.WithError(err).Warn("import: persist failed")
		return err
	}
	log.WithField("chapters", len(chapters)).Info("manuscript imported")
	return nil
}

func (p *Processor) handleCleanup(ctx context.Context, _ *asynq.Task) error {
	removed, err := p.store.RemoveExpired(ctx)
	if err != nil {
		return fmt.Errorf("sweep artifacts: %w", err)
	}
	if removed > 0 {
		p.log.WithField("artifacts", removed).Info("cleanup swept expired artifacts")
	}
	return nil
}
