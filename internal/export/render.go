package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bookbloom/bookbloom/internal/model"
)

// ErrChapterNotFound is returned when a requested chapter id does not exist
// in the book. The renderer fails loudly instead of silently omitting
// content the caller asked for.
var ErrChapterNotFound = errors.New("chapter not found")

// Artifact is the rendered output of a completed export.
type Artifact struct {
	Data        []byte
	ContentType string
	Extension   string
}

// blockKind discriminates the logical pieces the serializers consume.
type blockKind int

const (
	blockTitle blockKind = iota
	blockHeading
	blockParagraph
	blockPageBreak
)

type block struct {
	kind blockKind
	text string
}

// Render produces the artifact for a validated request. It is deterministic:
// identical (book, request) inputs yield byte-identical output. No
// timestamps or random data enter the artifact content.
func Render(book *model.BookSnapshot, req ValidatedRequest) (Artifact, error) {
	blocks, err := buildBlocks(book, req)
	if err != nil {
		return Artifact{}, err
	}
	var data []byte
	switch req.Format {
	case model.FormatTXT:
		data, err = renderText(blocks, req.Options)
	case model.FormatDOCX:
		data, err = renderDOCX(blocks, req.Options)
	case model.FormatPDF:
		data = renderPDF(blocks, req.Options)
	default:
		// Validate rejects unknown formats before Render is reachable.
		return Artifact{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Format)
	}
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Data:        data,
		ContentType: req.Format.ContentType(),
		Extension:   req.Format.Extension(),
	}, nil
}

// buildBlocks assembles the logical document shared by every serializer.
// Chapters are filtered and ordered by the request's chapter id sequence,
// not the book's native order, and headings are renumbered by position in
// the filtered sequence.
func buildBlocks(book *model.BookSnapshot, req ValidatedRequest) ([]block, error) {
	chapters := make([]model.Chapter, 0, len(req.ChapterIDs))
	for _, id := range req.ChapterIDs {
		ch, ok := book.ChapterByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrChapterNotFound, id)
		}
		chapters = append(chapters, ch)
	}

	var blocks []block
	add := func(kind blockKind, text string) {
		blocks = append(blocks, block{kind: kind, text: text})
	}
	blank := func() { add(blockParagraph, "") }

	if req.Options.IncludeTitlePage {
		add(blockTitle, strings.ToUpper(book.Title))
		if book.Subtitle != "" {
			add(blockParagraph, book.Subtitle)
		}
		blank()
		add(blockParagraph, "by "+book.Author)
		if book.CopyrightLine != "" {
			blank()
			add(blockParagraph, book.CopyrightLine)
		}
		blank()
	}

	if req.Options.IncludeTableOfContents {
		add(blockHeading, "TABLE OF CONTENTS")
		blank()
		for i, ch := range chapters {
			add(blockParagraph, fmt.Sprintf("%d. %s", i+1, ch.Title))
		}
		blank()
	}

	if book.Synopsis != "" {
		add(blockHeading, "SYNOPSIS")
		blank()
		add(blockParagraph, book.Synopsis)
		blank()
	}

	for i, ch := range chapters {
		if i > 0 && req.Options.ChapterPageBreaks {
			add(blockPageBreak, "")
		}
		add(blockHeading, fmt.Sprintf("CHAPTER %d: %s", i+1, strings.ToUpper(ch.Title)))
		blank()
		for _, line := range strings.Split(ch.Content, "\n") {
			add(blockParagraph, line)
		}
		blank()
	}

	if req.Options.IncludeCharacterList {
		if req.Options.ChapterPageBreaks {
			add(blockPageBreak, "")
		}
		add(blockHeading, "CHARACTERS")
		blank()
		add(blockParagraph, "Character list to be compiled.")
		blank()
	}

	if req.Options.IncludeWorldBuildingNotes {
		if req.Options.ChapterPageBreaks {
			add(blockPageBreak, "")
		}
		add(blockHeading, "WORLD BUILDING NOTES")
		blank()
		add(blockParagraph, "World building notes to be compiled.")
		blank()
	}

	return blocks, nil
}
