package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bookbloom/bookbloom/internal/model"
)

// Base-14 font names keyed by the friendly names callers send. Unrecognized
// fonts fall back to the default serif face.
var pdfFonts = map[string]string{
	"times new roman": "Times-Roman",
	"times":           "Times-Roman",
	"georgia":         "Times-Roman",
	"helvetica":       "Helvetica",
	"arial":           "Helvetica",
	"courier":         "Courier",
	"courier new":     "Courier",
}

var pdfTextEscaper = strings.NewReplacer(
	`\`, `\\`,
	"(", `\(`,
	")", `\)`,
	"\r", "",
)

// renderPDF serializes blocks into a minimal single-page PDF envelope: one
// catalog, one page, one content stream, one base-14 font. Font and line
// spacing affect the rendering metadata only; exact pagination is out of
// scope. The output contains no timestamps, so it is byte-stable.
func renderPDF(blocks []block, opts model.RenderOptions) []byte {
	baseFont, ok := pdfFonts[strings.ToLower(strings.TrimSpace(opts.Font))]
	if !ok {
		baseFont = "Times-Roman"
	}
	stream := contentStream(blocks, opts)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, 6)
	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	writeObj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>")
	writeObj(4, fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream))
	writeObj(5, fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s >>", baseFont))

	xrefOffset := buf.Len()
	buf.WriteString("xref\n0 6\n")
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes()
}

func contentStream(blocks []block, opts model.RenderOptions) string {
	const fontSize = 12
	leading := int(opts.LineSpacing * fontSize)
	var b strings.Builder
	b.WriteString("BT\n")
	fmt.Fprintf(&b, "/F1 %d Tf\n%d TL\n72 720 Td\n", fontSize, leading)
	for _, blk := range blocks {
		if blk.kind == blockPageBreak {
			b.WriteString("T*\n")
			continue
		}
		fmt.Fprintf(&b, "(%s) Tj\nT*\n", pdfTextEscaper.Replace(blk.text))
	}
	b.WriteString("ET\n")
	if opts.PageNumbers {
		b.WriteString("BT\n/F1 10 Tf\n300 36 Td\n(1) Tj\nET\n")
	}
	return b.String()
}
