package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookbloom/bookbloom/internal/artifact"
	"github.com/bookbloom/bookbloom/internal/config"
	"github.com/bookbloom/bookbloom/internal/model"
	"github.com/bookbloom/bookbloom/internal/repository"
	"github.com/bookbloom/bookbloom/internal/service"
	"github.com/bookbloom/bookbloom/internal/signing"
	"github.com/bookbloom/bookbloom/internal/tracker"
)

func newTestServer(t *testing.T) (*Server, *repository.MemoryBookStore) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	signer := signing.NewSigner([]byte("test-secret"))
	books := repository.NewMemoryBookStore()
	artifacts := artifact.NewMemoryStore(signer)
	svc := service.NewExportService(books, artifacts, tracker.New(), 0, log)
	cfg := &config.Config{Address: ":0", MaxUploadSize: 1 << 20}
	return New(cfg, svc, books, artifacts, nil, nil, signer, log), books
}

func seedBook(t *testing.T, books *repository.MemoryBookStore) {
	t.Helper()
	require.NoError(t, books.Create(context.Background(), &model.BookSnapshot{
		ID:     "b1",
		Title:  "Demo",
		Author: "Jane Author",
		Chapters: []model.Chapter{
			{ID: "c1", Title: "Intro", Content: "Hello", WordCount: 1},
			{ID: "c2", Title: "Middle", Content: "World", WordCount: 1},
		},
	}))
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubmitExportAndDownload(t *testing.T) {
	srv, books := newTestServer(t)
	seedBook(t, books)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/export/b1", map[string]any{
		"format":     "txt",
		"chapterIds": []string{"c1", "c2"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var job model.ExportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, model.StatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.True(t, strings.HasPrefix(job.DownloadReference, "/exports/"))

	// The signed reference downloads the artifact.
	dl := doJSON(t, h, http.MethodGet, job.DownloadReference, nil)
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "text/plain; charset=utf-8", dl.Header().Get("Content-Type"))
	assert.Contains(t, dl.Header().Get("Content-Disposition"), ".txt")
	assert.Contains(t, dl.Body.String(), "CHAPTER 1: INTRO")
}

func TestSubmitExportValidationError(t *testing.T) {
	srv, books := newTestServer(t)
	seedBook(t, books)

	rec := doJSON(t, srv.Routes(), http.MethodPost, "/export/b1", map[string]any{
		"format":     "txt",
		"chapterIds": []string{},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no chapters selected")
}

func TestSubmitExportUnknownBookReturnsFailedJob(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Routes(), http.MethodPost, "/export/ghost", map[string]any{
		"format":     "pdf",
		"chapterIds": []string{"c1"},
	})
	// The job settles as failed; submission itself succeeded.
	require.Equal(t, http.StatusCreated, rec.Code)
	var job model.ExportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, model.StatusFailed, job.Status)
	assert.Contains(t, job.Error, "book not found")
}

func TestExportHistoryNewestFirst(t *testing.T) {
	srv, books := newTestServer(t)
	seedBook(t, books)
	h := srv.Routes()

	for _, format := range []string{"txt", "pdf"} {
		rec := doJSON(t, h, http.MethodPost, "/export/b1", map[string]any{
			"format":     format,
			"chapterIds": []string{"c1"},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, h, http.MethodGet, "/export/b1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []model.ExportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	require.Len(t, jobs, 2)
	require.False(t, jobs[0].CreatedAt.Before(jobs[1].CreatedAt))
}

func TestJobStatusEndpoint(t *testing.T) {
	srv, books := newTestServer(t)
	seedBook(t, books)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/export/b1", map[string]any{
		"format":     "docx",
		"chapterIds": []string{"c2"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var job model.ExportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))

	got := doJSON(t, h, http.MethodGet, "/export/jobs/"+job.ID, nil)
	require.Equal(t, http.StatusOK, got.Code)

	missing := doJSON(t, h, http.MethodGet, "/export/jobs/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, missing.Code)
}

func TestDownloadRejectsTamperedSignature(t *testing.T) {
	srv, books := newTestServer(t)
	seedBook(t, books)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/export/b1", map[string]any{
		"format":     "txt",
		"chapterIds": []string{"c1"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var job model.ExportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))

	tampered := strings.Replace(job.DownloadReference, "signature=", "signature=00", 1)
	dl := doJSON(t, h, http.MethodGet, tampered, nil)
	require.Equal(t, http.StatusUnauthorized, dl.Code)
}

func TestCreateAndGetBook(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/books", map[string]any{
		"title":  "New Book",
		"author": "A. Writer",
		"chapters": []map[string]string{
			{"title": "One", "content": "First chapter text."},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var book model.BookSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	require.NotEmpty(t, book.ID)
	require.Len(t, book.Chapters, 1)
	assert.Equal(t, 3, book.Chapters[0].WordCount)

	got := doJSON(t, h, http.MethodGet, "/books/"+book.ID, nil)
	require.Equal(t, http.StatusOK, got.Code)

	missingTitle := doJSON(t, h, http.MethodPost, "/books", map[string]any{"author": "X"})
	require.Equal(t, http.StatusBadRequest, missingTitle.Code)
}

func TestImportUnavailableWithoutQueue(t *testing.T) {
	srv, books := newTestServer(t)
	seedBook(t, books)

	req := httptest.NewRequest(http.MethodPost, "/books/b1/import", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
