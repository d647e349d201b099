package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"
)

const docxDocumentXMLPath = "word/document.xml"

// wtTag matches <w:t>text</w:t> including runs carrying attributes
// (e.g. xml:space="preserve").
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// wpTag matches paragraph boundaries so extracted text keeps line structure.
var wpTag = regexp.MustCompile(`</w:p>`)

// extractDOCX extracts plain text from a .docx file by reading the main
// document part and collecting <w:t> runs, one line per paragraph.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open DOCX: %w", err)
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name != docxDocumentXMLPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", f.Name, err)
		}
		var buf bytes.Buffer
		_, err = buf.ReadFrom(rc)
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", f.Name, err)
		}
		docXML = buf.Bytes()
		break
	}
	if docXML == nil {
		return "", fmt.Errorf("DOCX has no %s", docxDocumentXMLPath)
	}

	var out strings.Builder
	for _, para := range wpTag.Split(string(docXML), -1) {
		var line strings.Builder
		for _, m := range wtTag.FindAllStringSubmatch(para, -1) {
			line.WriteString(html.UnescapeString(m[1]))
		}
		if line.Len() > 0 {
			out.WriteString(line.String())
			out.WriteByte('\n')
		}
	}
	return strings.TrimSpace(out.String()), nil
}
