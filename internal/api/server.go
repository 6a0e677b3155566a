// Package api exposes the HTTP surface: book CRUD glue, export submission
// and history, signed artifact downloads, and manuscript import.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/bookbloom/bookbloom/internal/artifact"
	"github.com/bookbloom/bookbloom/internal/config"
	"github.com/bookbloom/bookbloom/internal/export"
	"github.com/bookbloom/bookbloom/internal/model"
	"github.com/bookbloom/bookbloom/internal/queue"
	"github.com/bookbloom/bookbloom/internal/service"
	"github.com/bookbloom/bookbloom/internal/signing"
	"github.com/bookbloom/bookbloom/internal/tracker"
)

// BookStore is the book persistence surface the API needs; both the pgx
// repository and the in-memory store satisfy it.
type BookStore interface {
	Create(ctx context.Context, book *model.BookSnapshot) error
	BookSnapshot(ctx context.Context, bookID string) (*model.BookSnapshot, error)
}

// Server hosts the HTTP handlers. artifacts, raw, and queueClient may be nil
// depending on deployment mode: local downloads need the in-memory artifact
// store, manuscript import needs S3 plus the queue.
type Server struct {
	cfg         *config.Config
	svc         *service.ExportService
	books       BookStore
	artifacts   *artifact.MemoryStore
	raw         *artifact.S3Store
	queueClient *asynq.Client
	signer      *signing.Signer
	log         logrus.FieldLogger
	server      *http.Server
	once        sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, svc *service.ExportService, books BookStore, artifacts *artifact.MemoryStore, raw *artifact.S3Store, queueClient *asynq.Client, signer *signing.Signer, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		cfg:         cfg,
		svc:         svc,
		books:       books,
		artifacts:   artifacts,
		raw:         raw,
		queueClient: queueClient,
		signer:      signer,
		log:         log,
	}
}

// Routes builds the router. Exposed so tests can drive handlers through
// httptest without binding a socket.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealth)

	r.Post("/books", s.handleCreateBook)
	r.Get("/books/{bookID}", s.handleGetBook)
	r.Post("/books/{bookID}/import", s.handleImport)

	r.Post("/export/{bookID}", s.handleSubmitExport)
	r.Get("/export/{bookID}", s.handleExportHistory)
	r.Get("/export/jobs/{jobID}", s.handleJobStatus)

	r.Get("/exports/{artifactKey}", s.handleDownload)
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:    s.cfg.Address,
			Handler: s.Routes(),
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.log.WithField("address", s.cfg.Address).Info("api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createBookRequest struct {
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle"`
	Author        string `json:"author"`
	Synopsis      string `json:"synopsis"`
	Genre         string `json:"genre"`
	CopyrightLine string `json:"copyrightLine"`
	Chapters      []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"chapters"`
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req createBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Title == "" || req.Author == "" {
		respondError(w, http.StatusBadRequest, "title and author are required")
		return
	}
	book := &model.BookSnapshot{
		ID:            uuid.NewString(),
		Title:         req.Title,
		Subtitle:      req.Subtitle,
		Author:        req.Author,
		Synopsis:      req.Synopsis,
		Genre:         req.Genre,
		CopyrightLine: req.CopyrightLine,
	}
	for _, ch := range req.Chapters {
		book.Chapters = append(book.Chapters, model.Chapter{
			ID:        uuid.NewString(),
			Title:     ch.Title,
			Content:   ch.Content,
			WordCount: wordCount(ch.Content),
		})
	}
	if err := s.books.Create(r.Context(), book); err != nil {
		s.log.WithError(err).Error("create book")
		respondError(w, http.StatusInternalServerError, "failed to store book")
		return
	}
	respondJSON(w, http.StatusCreated, book)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.books.BookSnapshot(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "book not found")
		return
	}
	respondJSON(w, http.StatusOK, book)
}

func (s *Server) handleSubmitExport(w http.ResponseWriter, r *http.Request) {
	var req model.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	// The book id comes from the path; any value in the body is ignored.
	req.BookID = chi.URLParam(r, "bookID")
	job, err := s.svc.Submit(r.Context(), req)
	if err != nil {
		if isValidationError(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.WithError(err).Error("submit export")
		respondError(w, http.StatusInternalServerError, "export submission failed")
		return
	}
	respondJSON(w, http.StatusCreated, job)
}

func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.svc.History(chi.URLParam(r, "bookID")))
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.svc.Status(chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, tracker.ErrNotFound) {
			respondError(w, http.StatusNotFound, "job not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "status lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.artifacts == nil {
		// S3 deployments hand out presigned URLs; nothing is served locally.
		respondError(w, http.StatusNotFound, "artifact not found")
		return
	}
	key := chi.URLParam(r, "artifactKey")
	expires := r.URL.Query().Get("expires")
	signature := r.URL.Query().Get("signature")
	if key == "" || expires == "" || signature == "" {
		respondError(w, http.StatusBadRequest, "missing parameters")
		return
	}
	expiryUnix, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid expires")
		return
	}
	if time.Unix(expiryUnix, 0).Before(time.Now()) {
		respondError(w, http.StatusUnauthorized, "url expired")
		return
	}
	if !s.signer.Validate(key, expires, signature) {
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}
	obj, err := s.artifacts.Get(key)
	if err != nil {
		respondError(w, http.StatusNotFound, "artifact not found")
		return
	}
	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepath.Base(key)+"\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.queueClient == nil || s.raw == nil {
		respondError(w, http.StatusServiceUnavailable, "manuscript import is not configured")
		return
	}
	ctx := r.Context()
	bookID := chi.URLParam(r, "bookID")
	if _, err := s.books.BookSnapshot(ctx, bookID); err != nil {
		respondError(w, http.StatusNotFound, "book not found")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize+1024)
	mr, err := r.MultipartReader()
	if err != nil {
		respondError(w, http.StatusBadRequest, "expecting multipart form")
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer part.Close()
	data, err := io.ReadAll(part)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "empty file")
		return
	}
	if http.DetectContentType(data) != "application/pdf" {
		respondError(w, http.StatusBadRequest, "only PDF manuscripts supported")
		return
	}
	filename := part.FileName()
	if filename == "" {
		filename = "manuscript.pdf"
	}
	objectKey := fmt.Sprintf("uploads/%s/%s-%s", bookID, uuid.NewString(), filepath.Base(filename))
	if err := s.raw.UploadRaw(ctx, objectKey, bytes.NewReader(data), int64(len(data)), "application/pdf"); err != nil {
		s.log.WithError(err).Error("upload manuscript")
		respondError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	payload := queue.ImportPayload{BookID: bookID, ObjectKey: objectKey, FileName: filename}
	if err := queue.EnqueueImport(ctx, s.queueClient, payload); err != nil {
		s.log.WithError(err).Error("enqueue import")
		respondError(w, http.StatusInternalServerError, "failed to queue import")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{
		"bookId":    bookID,
		"objectKey": objectKey,
		"status":    "queued",
	})
}

func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, export.ErrMissingBookID) ||
		errors.Is(err, export.ErrUnsupportedFormat) ||
		errors.Is(err, export.ErrNoChaptersSelected)
}

func wordCount(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			inWord = false
		default:
			if !inWord {
				n++
			}
			inWord = true
		}
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Warn("encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Debug("request")
	})
}
