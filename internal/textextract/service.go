// Package textextract turns uploaded invoice files into plain text.
//
// PDFs are read natively first. When a PDF carries no text layer (a scan),
// its pages are rendered to images and handed to the configured OCR engine.
// Images go straight to the OCR engine with Spanish as the recognition
// language.
//
// Supported engines:
//   - tesseract: local Tesseract through gosseract, language "spa"
//   - vision: Google Cloud Vision document text detection
//   - documentai: Google Document AI OCR processor
//
// Cloud engines read credentials from GOOGLE_CREDENTIALS (inline JSON) or
// GOOGLE_APPLICATION_CREDENTIALS (file path), falling back to the default
// application credentials.
//
// Limits:
//   - Maximum document size: 20MB
//   - Scanned PDFs are rendered up to MaxRenderedPages pages
package textextract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"facturas/internal/logger"
	"facturas/pkg/models"
)

const (
	// MaxDocumentBytes is the largest document accepted for extraction (20MB).
	MaxDocumentBytes = 20 * 1024 * 1024

	// MaxRenderedPages caps how many pages of a scanned PDF are sent to OCR.
	MaxRenderedPages = 10

	mimePDF  = "application/pdf"
	mimeHEIC = "image/heic"
)

// OCREngine recognizes text in a single image.
type OCREngine interface {
	// RecognizeImage returns the text found in image, which is encoded as mimeType.
	RecognizeImage(ctx context.Context, image []byte, mimeType string) (string, error)

	// Close releases the engine's resources.
	Close() error
}

// PDFRecognizer is implemented by engines that accept whole PDF files.
// The service prefers it over rendering pages locally.
type PDFRecognizer interface {
	RecognizePDF(ctx context.Context, pdf []byte) (string, error)
}

// Service extracts text from uploaded documents.
type Service struct {
	engine OCREngine
	log    zerolog.Logger
}

// NewService creates an extraction service. A nil engine restricts the
// service to PDFs with a text layer.
func NewService(engine OCREngine) *Service {
	return &Service{
		engine: engine,
		log:    logger.WithComponent("textextract"),
	}
}

// Extract returns the text of doc. An empty string with a nil error means
// the document was readable but no text could be recovered.
func (s *Service) Extract(ctx context.Context, doc models.Document) (string, error) {
	const op = "Extract"

	if err := ctx.Err(); err != nil {
		return "", WrapExtractionError(op, ErrContextCanceled, err.Error())
	}
	if len(doc.Data) > MaxDocumentBytes {
		return "", WrapExtractionError(op, ErrDocumentTooLarge, fmt.Sprintf("file size: %d bytes", len(doc.Data)))
	}

	mimeType := DetectMIME(doc)
	log := s.log.With().Str("file", doc.Name).Str("mime_type", mimeType).Logger()
	log.Debug().Int("bytes", len(doc.Data)).Msg("Extracting text")

	var (
		text string
		err  error
	)
	switch {
	case mimeType == mimePDF:
		text, err = s.extractPDF(ctx, doc.Data, log)
	case strings.HasPrefix(mimeType, "image/"):
		text, err = s.extractImage(ctx, doc.Data, mimeType)
	default:
		return "", WrapExtractionError(op, ErrUnsupportedFileType, mimeType)
	}
	if err != nil {
		return "", WrapExtractionError(op, err, doc.Name)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		log.Warn().Msg("No text recovered")
		return "", nil
	}
	log.Info().Int("chars", len(text)).Msg("Text extracted")
	return text, nil
}

// Close releases the OCR engine.
func (s *Service) Close() error {
	if s.engine != nil {
		return s.engine.Close()
	}
	return nil
}

func (s *Service) extractPDF(ctx context.Context, data []byte, log zerolog.Logger) (string, error) {
	text, pages, err := nativePDFText(data)
	if err != nil {
		log.Warn().Err(err).Msg("Native PDF read failed, trying OCR")
	} else if strings.TrimSpace(text) != "" {
		log.Debug().Int("pages", pages).Msg("PDF has a text layer")
		return text, nil
	}

	if s.engine == nil {
		log.Warn().Msg("Scanned PDF and no OCR engine configured")
		return "", nil
	}

	if pr, ok := s.engine.(PDFRecognizer); ok {
		text, err := pr.RecognizePDF(ctx, data)
		if !errors.Is(err, ErrTooManyPages) {
			return text, err
		}
		log.Debug().Msg("PDF above the engine page limit, rendering pages")
	}

	images, err := renderPages(data, MaxRenderedPages)
	if err != nil {
		return "", err
	}
	log.Debug().Int("pages", len(images)).Msg("OCR on rendered pages")

	parts := make([]string, 0, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return "", WrapExtractionError("extractPDF", ErrContextCanceled, err.Error())
		}
		pageText, err := s.engine.RecognizeImage(ctx, img, "image/png")
		if err != nil {
			return "", WrapExtractionError("extractPDF", err, fmt.Sprintf("page %d", i+1))
		}
		parts = append(parts, strings.TrimSpace(pageText))
	}
	return strings.Join(parts, "\n"), nil
}

func (s *Service) extractImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	if s.engine == nil {
		return "", ErrNoOCREngine
	}
	return s.engine.RecognizeImage(ctx, data, mimeType)
}

// DetectMIME returns the document's MIME type, lowercased and without
// parameters. When the declared type is missing or generic it is derived
// from the file extension and then from the content.
func DetectMIME(doc models.Document) string {
	mimeType := strings.ToLower(strings.TrimSpace(doc.MIMEType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType != "" && mimeType != "application/octet-stream" {
		return mimeType
	}

	switch strings.ToLower(filepath.Ext(doc.Name)) {
	case ".pdf":
		return mimePDF
	case ".heic", ".heif":
		return mimeHEIC
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".tif", ".tiff":
		return "image/tiff"
	}

	detected := http.DetectContentType(doc.Data)
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	return detected
}
