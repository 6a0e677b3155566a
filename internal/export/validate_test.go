package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookbloom/bookbloom/internal/model"
)

func TestValidateRejectsMissingBookID(t *testing.T) {
	_, err := Validate(model.ExportRequest{
		Format:     model.FormatTXT,
		ChapterIDs: []string{"c1"},
	})
	require.ErrorIs(t, err, ErrMissingBookID)

	_, err = Validate(model.ExportRequest{
		BookID:     "   ",
		Format:     model.FormatTXT,
		ChapterIDs: []string{"c1"},
	})
	require.ErrorIs(t, err, ErrMissingBookID)
}

func TestValidateRejectsUnsupportedFormat(t *testing.T) {
	_, err := Validate(model.ExportRequest{
		BookID:     "b1",
		Format:     "epub",
		ChapterIDs: []string{"c1"},
	})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "epub")
}

func TestValidateRejectsEmptySelection(t *testing.T) {
	_, err := Validate(model.ExportRequest{
		BookID: "b1",
		Format: "TXT",
	})
	require.ErrorIs(t, err, ErrNoChaptersSelected)
}

func TestValidateNormalizesFormatCase(t *testing.T) {
	vreq, err := Validate(model.ExportRequest{
		BookID:     "b1",
		Format:     "PDF",
		ChapterIDs: []string{"c1"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.FormatPDF, vreq.Format)
}

func TestValidateDeduplicatesChapterIDs(t *testing.T) {
	vreq, err := Validate(model.ExportRequest{
		BookID:     "b1",
		Format:     model.FormatTXT,
		ChapterIDs: []string{"c2", "c1", "c2", "", "c1", "c3"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c2", "c1", "c3"}, vreq.ChapterIDs)
}

func TestValidateAppliesOptionDefaults(t *testing.T) {
	vreq, err := Validate(model.ExportRequest{
		BookID:     "b1",
		Format:     model.FormatPDF,
		ChapterIDs: []string{"c1"},
	})
	require.NoError(t, err)
	opts := vreq.Options
	assert.True(t, opts.IncludeTitlePage)
	assert.True(t, opts.IncludeTableOfContents)
	assert.False(t, opts.IncludeCharacterList)
	assert.False(t, opts.IncludeWorldBuildingNotes)
	assert.Equal(t, DefaultFont, opts.Font)
	assert.Equal(t, DefaultLineSpacing, opts.LineSpacing)
	assert.True(t, opts.PageNumbers)
	assert.True(t, opts.ChapterPageBreaks)
	assert.Equal(t, DefaultTextEncoding, opts.TextEncoding)
}

func TestValidateKeepsExplicitFalse(t *testing.T) {
	f := false
	vreq, err := Validate(model.ExportRequest{
		BookID:     "b1",
		Format:     model.FormatTXT,
		ChapterIDs: []string{"c1"},
		Options: model.ExportOptions{
			IncludeTitlePage:       &f,
			IncludeTableOfContents: &f,
			PageNumbers:            &f,
			ChapterPageBreaks:      &f,
		},
	})
	require.NoError(t, err)
	assert.False(t, vreq.Options.IncludeTitlePage)
	assert.False(t, vreq.Options.IncludeTableOfContents)
	assert.False(t, vreq.Options.PageNumbers)
	assert.False(t, vreq.Options.ChapterPageBreaks)
}

func TestValidateClampsLineSpacing(t *testing.T) {
	for in, want := range map[float64]float64{0.5: 1, 1.5: 1.5, 9: 3} {
		ls := in
		vreq, err := Validate(model.ExportRequest{
			BookID:     "b1",
			Format:     model.FormatPDF,
			ChapterIDs: []string{"c1"},
			Options:    model.ExportOptions{LineSpacing: &ls},
		})
		require.NoError(t, err)
		assert.Equal(t, want, vreq.Options.LineSpacing)
	}
}
