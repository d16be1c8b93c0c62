package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"facturas/internal/logger"
	"facturas/internal/textextract"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract the text of an invoice (PDF or image)",
	Long: `Extract the text of a PDF or image invoice.

PDFs with a text layer are read directly. Scanned PDFs and images (JPG, PNG,
HEIC) go through OCR in Spanish using the engine selected by OCR_ENGINE:

  tesseract  - local Tesseract (default)
  vision     - Google Cloud Vision
  documentai - Google Document AI
  none       - text-layer PDFs only

Google engines need GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.`,
	Example: `  # Print the text of a scanned invoice
  facturas extract factura.jpg

  # Save the text to a file
  facturas extract factura.pdf -o factura.txt

  # JSON output with file details
  facturas extract factura.pdf --json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// ExtractOutput is the JSON printed with --json.
type ExtractOutput struct {
	FileName           string    `json:"file_name"`
	FileSize           int       `json:"file_size"`
	MIMEType           string    `json:"mime_type"`
	Text               string    `json:"text"`
	ProcessedAt        time.Time `json:"processed_at"`
	ProcessingDuration string    `json:"processing_duration"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().Bool("json", false, "Output as JSON")
	extractCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	doc, err := readDocument(args[0], log)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	p, err := newPipeline(ctx, false, log)
	if err != nil {
		return err
	}
	defer p.Close(log)

	start := time.Now()
	text, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		return handleExtractError(err, log)
	}
	if text == "" {
		return fmt.Errorf("no readable text found in %s", doc.Name)
	}

	log.Info().
		Str("file", doc.Name).
		Dur("duration", time.Since(start)).
		Int("text_length", len(text)).
		Msg("Text extracted")

	var out []byte
	if jsonOutput {
		out, err = json.MarshalIndent(ExtractOutput{
			FileName:           doc.Name,
			FileSize:           len(doc.Data),
			MIMEType:           textextract.DetectMIME(doc),
			Text:               text,
			ProcessedAt:        time.Now(),
			ProcessingDuration: time.Since(start).String(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	} else {
		out = []byte(text)
	}
	return writeOutput(out, outputPath, log)
}

// handleExtractError provides user-friendly messages for extraction failures
func handleExtractError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Text extraction failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("extraction timed out. Try increasing --timeout")
	case errors.Is(err, context.Canceled), errors.Is(err, textextract.ErrContextCanceled):
		return fmt.Errorf("extraction was canceled")
	case errors.Is(err, textextract.ErrDocumentTooLarge):
		return fmt.Errorf("file is too large (maximum 20MB)")
	case errors.Is(err, textextract.ErrUnsupportedFileType):
		return fmt.Errorf("unsupported file type. Use PDF, JPG, PNG or HEIC")
	case errors.Is(err, textextract.ErrNoOCREngine):
		return fmt.Errorf("the file needs OCR but OCR_ENGINE=none")
	case errors.Is(err, textextract.ErrInvalidImage), errors.Is(err, textextract.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted file: %w", err)
	default:
		return fmt.Errorf("text extraction failed: %w", err)
	}
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(data []byte, path string, log zerolog.Logger) error {
	if path != "" {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Info().
			Str("output_file", path).
			Int("bytes", len(data)).
			Msg("Output written to file")
		return nil
	}

	if _, err := os.Stdout.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Println()
	return nil
}
