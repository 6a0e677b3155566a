// Package export implements the export request validator and the document
// renderer: the pure, side-effect-free half of the export pipeline.
package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bookbloom/bookbloom/internal/model"
)

var (
	// Validation failures are sentinel errors so callers can classify them
	// with errors.Is and map them to a 400 at the HTTP boundary.
	ErrMissingBookID      = errors.New("missing book id")
	ErrUnsupportedFormat  = errors.New("unsupported export format")
	ErrNoChaptersSelected = errors.New("no chapters selected")
)

// Option defaults applied during normalization.
const (
	DefaultFont         = "Times New Roman"
	DefaultLineSpacing  = 2.0
	DefaultTextEncoding = "UTF-8"

	minLineSpacing = 1.0
	maxLineSpacing = 3.0
)

// ValidatedRequest is a normalized export request: chapter ids de-duplicated
// (first occurrence wins, order preserved) and options merged with defaults.
// Only the validator produces values of this type.
type ValidatedRequest struct {
	BookID     string
	Format     model.Format
	ChapterIDs []string
	Options    model.RenderOptions
}

// Validate checks an export request for structural validity and returns its
// normalized form. It is a pure function: no I/O, no side effects.
func Validate(req model.ExportRequest) (ValidatedRequest, error) {
	if strings.TrimSpace(req.BookID) == "" {
		return ValidatedRequest{}, ErrMissingBookID
	}
	// Format names are accepted case-insensitively ("TXT" and "txt" alike).
	format := model.Format(strings.ToLower(strings.TrimSpace(string(req.Format))))
	if !format.Valid() {
		return ValidatedRequest{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Format)
	}
	ids := dedupe(req.ChapterIDs)
	if len(ids) == 0 {
		return ValidatedRequest{}, ErrNoChaptersSelected
	}
	return ValidatedRequest{
		BookID:     req.BookID,
		Format:     format,
		ChapterIDs: ids,
		Options:    normalizeOptions(req.Options),
	}, nil
}

// dedupe collapses duplicate ids to their first occurrence, preserving the
// caller's ordering, which defines the output order of the artifact.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func normalizeOptions(in model.ExportOptions) model.RenderOptions {
	out := model.RenderOptions{
		IncludeTitlePage:       true,
		IncludeTableOfContents: true,
		Font:                   DefaultFont,
		LineSpacing:            DefaultLineSpacing,
		PageNumbers:            true,
		ChapterPageBreaks:      true,
		TextEncoding:           DefaultTextEncoding,
	}
	if in.IncludeTitlePage != nil {
		out.IncludeTitlePage = *in.IncludeTitlePage
	}
	if in.IncludeTableOfContents != nil {
		out.IncludeTableOfContents = *in.IncludeTableOfContents
	}
	if in.IncludeCharacterList != nil {
		out.IncludeCharacterList = *in.IncludeCharacterList
	}
	if in.IncludeWorldBuildingNotes != nil {
		out.IncludeWorldBuildingNotes = *in.IncludeWorldBuildingNotes
	}
	if in.Font != "" {
		out.Font = in.Font
	}
	if in.LineSpacing != nil {
		ls := *in.LineSpacing
		if ls < minLineSpacing {
			ls = minLineSpacing
		}
		if ls > maxLineSpacing {
			ls = maxLineSpacing
		}
		out.LineSpacing = ls
	}
	if in.PageNumbers != nil {
		out.PageNumbers = *in.PageNumbers
	}
	if in.ChapterPageBreaks != nil {
		out.ChapterPageBreaks = *in.ChapterPageBreaks
	}
	if in.TextEncoding != "" {
		out.TextEncoding = in.TextEncoding
	}
	return out
}
