package textextract

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
)

// Engine names accepted by NewEngine.
const (
	EngineNone       = "none"
	EngineTesseract  = "tesseract"
	EngineVision     = "vision"
	EngineDocumentAI = "documentai"
)

// EngineConfig selects and configures an OCR engine.
type EngineConfig struct {
	Engine            string
	TesseractLanguage string

	// Google Cloud settings shared by Vision and Document AI.
	ProjectID       string
	Location        string
	ProcessorID     string
	CredentialsJSON string
	CredentialsFile string
}

// NewEngine builds the engine named by cfg.Engine. EngineNone yields a nil
// engine, which limits extraction to PDFs with a text layer.
func NewEngine(ctx context.Context, cfg EngineConfig) (OCREngine, error) {
	const op = "NewEngine"

	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", EngineTesseract:
		return NewTesseractEngine(cfg.TesseractLanguage), nil
	case EngineVision:
		engine, err := NewGoogleVisionEngine(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case EngineDocumentAI:
		engine, err := NewDocumentAIEngine(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case EngineNone:
		return nil, nil
	default:
		return nil, WrapExtractionError(op, ErrUnknownEngine, fmt.Sprintf("engine: %q", cfg.Engine))
	}
}

// credentialOptions mirrors the lookup order of the cloud clients: inline
// JSON first, then a key file. No options means default credentials.
func credentialOptions(cfg EngineConfig) []option.ClientOption {
	switch {
	case cfg.CredentialsJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))}
	case cfg.CredentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
	default:
		return nil
	}
}
