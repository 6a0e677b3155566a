// Package worker ingests uploaded manuscript PDFs: text extraction, chapter
// splitting, and the asynq handlers driving both.
package worker

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	pdf "github.com/ledongthuc/pdf"

	"github.com/bookbloom/bookbloom/internal/model"
)

// ExtractText reads PDF bytes and returns plain text using ledongthuc/pdf.
func ExtractText(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	doc, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}
	var builder strings.Builder
	total := doc.NumPage()
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// chapterHeading matches manuscript headings like "Chapter 3", "CHAPTER IX"
// or "Chapter 2: The Road", at the start of a line.
var chapterHeading = regexp.MustCompile(`(?mi)^\s*chapter\s+([0-9]+|[ivxlcdm]+)\b[^\n]*$`)

// fallbackChunkWords bounds chapter size when a manuscript carries no
// recognizable headings.
const fallbackChunkWords = 2000

// SplitChapters divides extracted manuscript text into chapters. Text before
// the first heading (front matter) is dropped; manuscripts without headings
// are chunked by word count instead.
func SplitChapters(text string) []model.Chapter {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	locs := chapterHeading.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return chunkByWords(text)
	}
	chapters := make([]model.Chapter, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		headingLine := strings.TrimSpace(text[loc[0]:loc[1]])
		body := strings.TrimSpace(text[loc[1]:end])
		chapters = append(chapters, newChapter(headingTitle(headingLine, i+1), body))
	}
	return chapters
}

// headingTitle extracts the title part of a heading line, falling back to a
// positional name when the heading carries no title.
func headingTitle(line string, position int) string {
	if idx := strings.IndexAny(line, ":-"); idx >= 0 && idx+1 < len(line) {
		if title := strings.TrimSpace(line[idx+1:]); title != "" {
			return title
		}
	}
	return fmt.Sprintf("Chapter %d", position)
}

func chunkByWords(text string) []model.Chapter {
	words := strings.Fields(text)
	var chapters []model.Chapter
	for start := 0; start < len(words); start += fallbackChunkWords {
		end := start + fallbackChunkWords
		if end > len(words) {
			end = len(words)
		}
		title := fmt.Sprintf("Chapter %d", len(chapters)+1)
		chapters = append(chapters, newChapter(title, strings.Join(words[start:end], " ")))
	}
	return chapters
}

func newChapter(title, content string) model.Chapter {
	return model.Chapter{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		WordCount: len(strings.Fields(content)),
	}
}
