// Package e2e exercises the full answer pipeline over a file-based knowledge base.
package e2e

import (
	"archive/zip"
	"bytes"
	"html"

	"github.com/xuri/excelize/v2"
)

// SupportedFileExtensions is the list of file extensions used in the E2E
// knowledge base. Covers plain text (.txt, .md) and OOXML (.docx, .xlsx).
// PDF extraction is covered by internal/extract tests; a minimal PDF with
// extractable text is not generated here.
var SupportedFileExtensions = []string{".md", ".txt", ".docx", ".xlsx"}

// WriteMinimalFile returns the bytes of a minimal file of the given extension
// holding the given text. For plain types the content is the raw text; for
// binary types it is a minimal valid archive carrying the text.
func WriteMinimalFile(ext, text string) ([]byte, error) {
	switch ext {
	case ".docx":
		return minimalDocx(text), nil
	case ".xlsx":
		return minimalXlsx(text), nil
	default:
		return []byte(text), nil
	}
}

func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + html.EscapeString(text) + `</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func minimalXlsx(text string) []byte {
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetCellValue("Sheet1", "A1", text)
	var buf bytes.Buffer
	_, _ = f.WriteTo(&buf)
	return buf.Bytes()
}
