package model

import (
	"time"
)

// Format identifies the target artifact format of an export. Declaring it as
// a named string type gives us type safety over plain strings while keeping
// JSON round-trips trivial.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

// Valid reports whether f is one of the recognized formats.
func (f Format) Valid() bool {
	switch f {
	case FormatPDF, FormatDOCX, FormatTXT:
		return true
	}
	return false
}

// Extension returns the file extension used in artifact keys and download
// references.
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type served for artifacts of this format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/plain; charset=utf-8"
	}
}

// JobStatus describes the export job lifecycle. Transitions are strictly
// forward: pending -> processing -> completed|failed.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition can occur from s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// rank orders statuses along the lifecycle so the tracker can refuse
// backward transitions.
func (s JobStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	}
	return -1
}

// CanTransition reports whether a job may move from s to next.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s == next {
		return true
	}
	return !s.Terminal() && next.rank() > s.rank()
}

// ExportOptions carries the caller-supplied formatting switches. Pointer
// fields distinguish "omitted" from "explicitly false/zero" so defaults can
// be merged without clobbering deliberate choices.
type ExportOptions struct {
	IncludeTitlePage          *bool    `json:"includeTitlePage,omitempty"`
	IncludeTableOfContents    *bool    `json:"includeTableOfContents,omitempty"`
	IncludeCharacterList      *bool    `json:"includeCharacterList,omitempty"`
	IncludeWorldBuildingNotes *bool    `json:"includeWorldBuildingNotes,omitempty"`
	Font                      string   `json:"font,omitempty"`
	LineSpacing               *float64 `json:"lineSpacing,omitempty"`
	PageNumbers               *bool    `json:"pageNumbers,omitempty"`
	ChapterPageBreaks         *bool    `json:"chapterPageBreaks,omitempty"`
	TextEncoding              string   `json:"textEncoding,omitempty"`
}

// RenderOptions is the normalized form of ExportOptions after defaults have
// been applied. The renderer only ever sees this type.
type RenderOptions struct {
	IncludeTitlePage          bool
	IncludeTableOfContents    bool
	IncludeCharacterList      bool
	IncludeWorldBuildingNotes bool
	Font                      string
	LineSpacing               float64
	PageNumbers               bool
	ChapterPageBreaks         bool
	TextEncoding              string
}

// ExportRequest is the caller's input to the export pipeline.
type ExportRequest struct {
	BookID     string        `json:"bookId"`
	Format     Format        `json:"format"`
	ChapterIDs []string      `json:"chapterIds"`
	Options    ExportOptions `json:"options"`
}

// ExportJob is the lifecycle entity tracked from submission to eviction.
// Fields gated by status (DownloadReference, ExpiresAt, Error) are populated
// only once the corresponding terminal state is reached.
type ExportJob struct {
	ID                string     `json:"id"`
	BookID            string     `json:"bookId"`
	Format            Format     `json:"format"`
	Status            JobStatus  `json:"status"`
	Progress          int        `json:"progress"`
	DownloadReference string     `json:"downloadReference,omitempty"`
	ExpiresAt         *time.Time `json:"expiresAt,omitempty"`
	Error             string     `json:"error,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// Clone returns a deep copy so callers can hand out job records without
// exposing shared mutable state.
func (j ExportJob) Clone() ExportJob {
	out := j
	if j.ExpiresAt != nil {
		t := *j.ExpiresAt
		out.ExpiresAt = &t
	}
	return out
}

// Expired reports whether the job's artifact lifetime has passed at now.
// Jobs without an expiry (anything not completed) never expire.
func (j ExportJob) Expired(now time.Time) bool {
	return j.ExpiresAt != nil && j.ExpiresAt.Before(now)
}
