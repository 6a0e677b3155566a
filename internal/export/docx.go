package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/bookbloom/bookbloom/internal/model"
)

// Fixed parts of the DOCX container. A .docx file is a zip archive holding
// WordprocessingML; these two entries plus word/document.xml are the minimum
// a word processor needs to open the file.
const (
	docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>
`
	docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>
`
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// renderDOCX serializes blocks as a minimal WordprocessingML document inside
// a zip container. Zip entry headers carry zero modification times so the
// output stays byte-identical across runs.
func renderDOCX(blocks []block, opts model.RenderOptions) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := []struct {
		name string
		data string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRels},
		{"word/document.xml", documentXML(blocks, opts)},
	}
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("create zip entry %s: %w", e.name, err)
		}
		if _, err := w.Write([]byte(e.data)); err != nil {
			return nil, fmt.Errorf("write zip entry %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize docx container: %w", err)
	}
	return buf.Bytes(), nil
}

func documentXML(blocks []block, opts model.RenderOptions) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` + "\n")
	b.WriteString("<w:body>\n")
	// Line spacing is expressed in 240ths of a line per OOXML conventions.
	spacing := int(opts.LineSpacing * 240)
	for _, blk := range blocks {
		switch blk.kind {
		case blockPageBreak:
			b.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>` + "\n")
		case blockTitle, blockHeading:
			b.WriteString(`<w:p><w:pPr><w:jc w:val="center"/></w:pPr>`)
			b.WriteString(`<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">`)
			b.WriteString(xmlEscaper.Replace(blk.text))
			b.WriteString(`</w:t></w:r></w:p>` + "\n")
		default:
			fmt.Fprintf(&b, `<w:p><w:pPr><w:spacing w:line="%d" w:lineRule="auto"/></w:pPr>`, spacing)
			b.WriteString(`<w:r><w:t xml:space="preserve">`)
			b.WriteString(xmlEscaper.Replace(blk.text))
			b.WriteString(`</w:t></w:r></w:p>` + "\n")
		}
	}
	b.WriteString("</w:body>\n</w:document>\n")
	return b.String()
}
