package worker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChaptersByHeadings(t *testing.T) {
	text := `Some front matter the splitter should drop.

Chapter 1: The Road
It was a long road.

CHAPTER 2
Nothing much happened.

Chapter IX - Homecoming
They arrived at last.`

	chapters := SplitChapters(text)
	require.Len(t, chapters, 3)

	assert.Equal(t, "The Road", chapters[0].Title)
	assert.Equal(t, "It was a long road.", chapters[0].Content)
	assert.Equal(t, 5, chapters[0].WordCount)

	// Headings without a title part get a positional name.
	assert.Equal(t, "Chapter 2", chapters[1].Title)
	assert.Equal(t, "Nothing much happened.", chapters[1].Content)

	assert.Equal(t, "Homecoming", chapters[2].Title)
	assert.Equal(t, "They arrived at last.", chapters[2].Content)

	for _, ch := range chapters {
		assert.NotEmpty(t, ch.ID)
		assert.NotContains(t, ch.Content, "front matter")
	}
}

func TestSplitChaptersWithoutHeadingsChunksByWords(t *testing.T) {
	words := make([]string, fallbackChunkWords+5)
	for i := range words {
		words[i] = "word"
	}
	chapters := SplitChapters(strings.Join(words, " "))
	require.Len(t, chapters, 2)
	assert.Equal(t, "Chapter 1", chapters[0].Title)
	assert.Equal(t, fallbackChunkWords, chapters[0].WordCount)
	assert.Equal(t, "Chapter 2", chapters[1].Title)
	assert.Equal(t, 5, chapters[1].WordCount)
}

func TestSplitChaptersEmptyInput(t *testing.T) {
	assert.Nil(t, SplitChapters(""))
	assert.Nil(t, SplitChapters("   \n\t  "))
}

func TestHeadingTitleFallback(t *testing.T) {
	assert.Equal(t, "Chapter 4", headingTitle("Chapter 4:", 4))
	assert.Equal(t, "Chapter 7", headingTitle("CHAPTER VII", 7))
	assert.Equal(t, "The End", headingTitle("Chapter 9 - The End", 9))
}
