package textextract

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"facturas/internal/logger"
)

// documentAITimeout bounds a single ProcessDocument call.
const documentAITimeout = 60 * time.Second

// DocumentAIEngine implements OCREngine and PDFRecognizer with a Document AI OCR processor.
type DocumentAIEngine struct {
	client        *documentai.DocumentProcessorClient
	processorName string
	log           zerolog.Logger
}

// NewDocumentAIEngine creates an engine for the processor named in cfg.
func NewDocumentAIEngine(ctx context.Context, cfg EngineConfig) (*DocumentAIEngine, error) {
	const op = "NewDocumentAIEngine"

	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, WrapExtractionError(op, ErrMissingCredentials, "GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID are required")
	}
	location := cfg.Location
	if location == "" {
		location = "us"
	}

	clientOptions := credentialOptions(cfg)
	if location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		return nil, WrapExtractionError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", location))
	}

	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", cfg.ProjectID, location, cfg.ProcessorID)
	return NewDocumentAIEngineWithClient(client, name), nil
}

// NewDocumentAIEngineWithClient creates an engine with an explicit client (for testing).
func NewDocumentAIEngineWithClient(client *documentai.DocumentProcessorClient, processorName string) *DocumentAIEngine {
	return &DocumentAIEngine{
		client:        client,
		processorName: processorName,
		log:           logger.WithComponent("document-ai"),
	}
}

// RecognizeImage sends one image to the processor.
func (d *DocumentAIEngine) RecognizeImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	if isHEIC(data, mimeType) {
		png, err := preprocess(data, mimeType)
		if err != nil {
			return "", err
		}
		data, mimeType = png, "image/png"
	}
	return d.process(ctx, data, mimeType)
}

// RecognizePDF sends a whole PDF to the processor.
func (d *DocumentAIEngine) RecognizePDF(ctx context.Context, pdf []byte) (string, error) {
	return d.process(ctx, pdf, mimePDF)
}

func (d *DocumentAIEngine) process(ctx context.Context, content []byte, mimeType string) (string, error) {
	const op = "ProcessDocument"

	processCtx, cancel := context.WithTimeout(ctx, documentAITimeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: d.processorName,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
	}

	resp, err := d.client.ProcessDocument(processCtx, req)
	if err != nil {
		return "", d.handleProcessingError(op, err)
	}

	doc := resp.GetDocument()
	d.log.Debug().
		Str("mime_type", mimeType).
		Int("pages", len(doc.GetPages())).
		Msg("Document AI processing complete")
	return doc.GetText(), nil
}

// handleProcessingError maps Document AI failures to package errors.
func (d *DocumentAIEngine) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"), strings.Contains(errStr, "PermissionDenied"):
		return WrapExtractionError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "INVALID_ARGUMENT"), strings.Contains(errStr, "InvalidArgument"):
		return WrapExtractionError(op, ErrUnsupportedFileType, "document format not supported or corrupted")
	case strings.Contains(errStr, "context canceled"), strings.Contains(errStr, "Canceled"):
		return WrapExtractionError(op, ErrContextCanceled, "processing was canceled")
	default:
		return WrapExtractionError(op, ErrOCRFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// Close closes the underlying Document AI client.
func (d *DocumentAIEngine) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
