package textextract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// nativePDFText reads the text layer of a PDF page by page. Pages that
// fail to decode are skipped; a scanned PDF yields an empty string.
func nativePDFText(data []byte) (text string, pages int, err error) {
	const op = "nativePDFText"

	if len(data) < 4 || string(data[:4]) != "%PDF" {
		return "", 0, WrapExtractionError(op, ErrInvalidPDF, "missing PDF header")
	}

	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = WrapExtractionError(op, ErrInvalidPDF, fmt.Sprint(r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, WrapExtractionError(op, ErrInvalidPDF, err.Error())
	}

	var sb strings.Builder
	pages = reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), pages, nil
}
