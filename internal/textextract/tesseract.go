package textextract

import (
	"context"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"facturas/internal/logger"
)

// DefaultTesseractLanguage is the traineddata used for Argentine invoices.
const DefaultTesseractLanguage = "spa"

// TesseractEngine runs a local Tesseract installation.
type TesseractEngine struct {
	language string
	log      zerolog.Logger
}

// NewTesseractEngine creates an engine for the given traineddata language.
func NewTesseractEngine(language string) *TesseractEngine {
	if language == "" {
		language = DefaultTesseractLanguage
	}
	return &TesseractEngine{
		language: language,
		log:      logger.WithComponent("tesseract"),
	}
}

// RecognizeImage preprocesses the image and runs Tesseract on it.
func (t *TesseractEngine) RecognizeImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	const op = "RecognizeImage"

	if err := ctx.Err(); err != nil {
		return "", WrapExtractionError(op, ErrContextCanceled, err.Error())
	}

	png, err := preprocess(data, mimeType)
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return "", WrapExtractionError(op, ErrOCRFailed, err.Error())
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", WrapExtractionError(op, ErrOCRFailed, err.Error())
	}

	text, err := client.Text()
	if err != nil {
		return "", WrapExtractionError(op, ErrOCRFailed, err.Error())
	}

	t.log.Debug().
		Str("language", t.language).
		Int("chars", len(text)).
		Msg("Tesseract recognition complete")
	return text, nil
}

// Close is a no-op; each recognition uses its own client.
func (t *TesseractEngine) Close() error {
	return nil
}
