package textextract

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
)

// renderDPI is the resolution scanned pages are rendered at for OCR.
const renderDPI = 300

// renderPages rasterizes up to maxPages pages of a PDF into PNG images.
func renderPages(data []byte, maxPages int) ([][]byte, error) {
	const op = "renderPages"

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, WrapExtractionError(op, ErrInvalidPDF, err.Error())
	}
	defer doc.Close()

	n := doc.NumPage()
	if n > maxPages {
		n = maxPages
	}

	images := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		img, err := doc.ImageDPI(i, renderDPI)
		if err != nil {
			return nil, WrapExtractionError(op, err, fmt.Sprintf("rendering page %d", i+1))
		}
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, WrapExtractionError(op, err, fmt.Sprintf("encoding page %d", i+1))
		}
		images = append(images, buf.Bytes())
	}
	return images, nil
}
