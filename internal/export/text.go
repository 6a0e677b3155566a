package export

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/bookbloom/bookbloom/internal/model"
)

// renderText serializes blocks as plain text. Page breaks become form feed
// characters; everything else is emitted verbatim, one block per line.
func renderText(blocks []block, opts model.RenderOptions) ([]byte, error) {
	var b strings.Builder
	for _, blk := range blocks {
		if blk.kind == blockPageBreak {
			b.WriteString("\f\n")
			continue
		}
		b.WriteString(blk.text)
		b.WriteString("\n")
	}
	return encodeText(b.String(), opts.TextEncoding)
}

// encodeText converts UTF-8 text into the requested charset using the IANA
// registry from golang.org/x/text. Characters with no mapping in the target
// charset are replaced rather than failing the whole export.
func encodeText(s, charset string) ([]byte, error) {
	name := strings.TrimSpace(charset)
	switch strings.ToUpper(name) {
	case "", "UTF-8", "UTF8":
		return []byte(s), nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported text encoding %q", charset)
	}
	out, err := encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode text as %q: %w", charset, err)
	}
	return out, nil
}
