package textextract

import (
	"context"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"

	"facturas/internal/logger"
)

const (
	// MaxPagesSync is the maximum number of pages Vision accepts per synchronous file request.
	MaxPagesSync = 5
)

// languageHints steers Vision toward Spanish.
var languageHints = []string{"es"}

// GoogleVisionEngine implements OCREngine and PDFRecognizer using Google Cloud Vision API.
type GoogleVisionEngine struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewGoogleVisionEngine creates a Vision engine with the configured credentials.
func NewGoogleVisionEngine(ctx context.Context, cfg EngineConfig) (*GoogleVisionEngine, error) {
	const op = "NewGoogleVisionEngine"

	opts := credentialOptions(cfg)
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapExtractionError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapExtractionError(op, err, "failed to create Vision client")
	}

	return NewGoogleVisionEngineWithClient(client), nil
}

// NewGoogleVisionEngineWithClient creates a Vision engine with an explicit client (for testing).
func NewGoogleVisionEngineWithClient(client *vision.ImageAnnotatorClient) *GoogleVisionEngine {
	return &GoogleVisionEngine{
		client: client,
		log:    logger.WithComponent("google-vision"),
	}
}

// RecognizeImage runs document text detection on a single image.
func (g *GoogleVisionEngine) RecognizeImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	const op = "RecognizeImage"

	content := data
	if isHEIC(data, mimeType) {
		png, err := preprocess(data, mimeType)
		if err != nil {
			return "", err
		}
		content = png
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: content},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{LanguageHints: languageHints},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", WrapExtractionError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return "", WrapExtractionError(op, ErrOCRFailed, "no response from Vision API")
	}

	imgResp := resp.Responses[0]
	if imgResp.Error != nil {
		return "", WrapExtractionError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", imgResp.Error.Message))
	}
	if imgResp.FullTextAnnotation == nil {
		return "", nil
	}
	return imgResp.FullTextAnnotation.Text, nil
}

// RecognizePDF sends a whole PDF of up to MaxPagesSync pages to Vision.
func (g *GoogleVisionEngine) RecognizePDF(ctx context.Context, pdfBytes []byte) (string, error) {
	const op = "RecognizePDF"

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdfBytes,
					MimeType: mimePDF,
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{LanguageHints: languageHints},
			},
		},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return "", WrapExtractionError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return "", WrapExtractionError(op, ErrOCRFailed, "no response from Vision API")
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return "", WrapExtractionError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.Error.Message))
	}
	return g.collectPages(fileResp)
}

// collectPages joins the per-page annotations of a file response in page order.
func (g *GoogleVisionEngine) collectPages(fileResp *visionpb.AnnotateFileResponse) (string, error) {
	pageCount := int(fileResp.TotalPages)
	if pageCount == 0 {
		pageCount = len(fileResp.Responses)
	}
	if pageCount > MaxPagesSync {
		return "", WrapExtractionError("collectPages", ErrTooManyPages, fmt.Sprintf("document has %d pages", pageCount))
	}

	parts := make([]string, 0, len(fileResp.Responses))
	for pageIdx, page := range fileResp.Responses {
		if page.Error != nil {
			return "", WrapExtractionError("collectPages", ErrOCRFailed,
				fmt.Sprintf("error processing page %d: %s", pageIdx+1, page.Error.Message))
		}
		if page.FullTextAnnotation != nil {
			parts = append(parts, strings.TrimSpace(page.FullTextAnnotation.Text))
		}
	}

	g.log.Debug().Int("pages", pageCount).Msg("Vision file annotation complete")
	return strings.Join(parts, "\n"), nil
}

// Close closes the underlying Vision client.
func (g *GoogleVisionEngine) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
