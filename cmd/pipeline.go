package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"facturas/internal/aivalidate"
	"facturas/internal/batch"
	"facturas/internal/config"
	"facturas/internal/fields"
	"facturas/internal/invoice"
	"facturas/internal/textextract"
	"facturas/pkg/models"
)

// supportedExtensions are the file types picked up from a folder.
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
	".heif": true,
}

// pipeline holds the stages shared by the commands.
type pipeline struct {
	cfg       *config.Config
	extractor *textextract.Service
	builder   *invoice.Builder
	validator *aivalidate.Validator
	closers   []func() error
}

func (p *pipeline) processor() *batch.Processor {
	return batch.NewProcessor(p.extractor, p.builder, p.validator)
}

func (p *pipeline) Close(log zerolog.Logger) {
	for _, c := range p.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("Failed to close pipeline stage")
		}
	}
}

// newPipeline builds the stages from the environment. withAI=false skips the
// model so records carry heuristic data only.
func newPipeline(ctx context.Context, withAI bool, log zerolog.Logger) (*pipeline, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	taxonomy := fields.DefaultTaxonomy()
	if cfg.CategoryTaxonomyFile != "" {
		taxonomy, err = fields.LoadTaxonomy(cfg.CategoryTaxonomyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load category taxonomy: %w", err)
		}
		log.Debug().Str("file", cfg.CategoryTaxonomyFile).Msg("Custom taxonomy loaded")
	}

	p := &pipeline{cfg: cfg, builder: invoice.NewBuilder(taxonomy)}

	engine, err := textextract.NewEngine(ctx, cfg.EngineConfig())
	if err != nil {
		return nil, handleEngineError(err)
	}
	p.extractor = textextract.NewService(engine)
	p.closers = append(p.closers, p.extractor.Close)

	var gen aivalidate.Generator
	if withAI {
		gen, err = aivalidate.NewGenerator(ctx, cfg.GeneratorConfig())
		if err != nil {
			p.Close(log)
			return nil, fmt.Errorf("failed to create AI generator: %w", err)
		}
		if c, ok := gen.(interface{ Close() error }); ok {
			p.closers = append(p.closers, c.Close)
		}
	}
	p.validator = aivalidate.NewValidator(gen, taxonomy)

	log.Debug().
		Str("ocr_engine", cfg.OCREngine).
		Str("ai_provider", cfg.AIProvider).
		Bool("ai_enabled", gen != nil).
		Msg("Pipeline created")
	return p, nil
}

// handleEngineError turns OCR engine setup failures into actionable messages.
func handleEngineError(err error) error {
	switch {
	case errors.Is(err, textextract.ErrMissingCredentials):
		return fmt.Errorf("Google Cloud credentials not configured. Set one of:\n\n" +
			"1. GOOGLE_APPLICATION_CREDENTIALS with the path to a service account JSON file\n" +
			"2. GOOGLE_CREDENTIALS with the inline JSON\n\n" +
			"or use OCR_ENGINE=tesseract for local OCR")
	case errors.Is(err, textextract.ErrUnknownEngine):
		return fmt.Errorf("unknown OCR engine: %w", err)
	default:
		return fmt.Errorf("failed to create OCR engine: %w", err)
	}
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling processing")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// readDocument checks that path is a readable, non-empty regular file and loads it.
func readDocument(path string, log zerolog.Logger) (models.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Document{}, fmt.Errorf("file not found: %s", path)
		}
		if os.IsPermission(err) {
			return models.Document{}, fmt.Errorf("permission denied accessing file: %s", path)
		}
		return models.Document{}, fmt.Errorf("error accessing file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return models.Document{}, fmt.Errorf("path is not a regular file: %s", path)
	}
	if info.Size() == 0 {
		return models.Document{}, fmt.Errorf("file is empty: %s", path)
	}
	if info.Size() > textextract.MaxDocumentBytes {
		log.Warn().
			Str("file", path).
			Int64("size", info.Size()).
			Msg("File exceeds maximum size limit")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read file: %w", err)
	}
	return models.Document{Name: filepath.Base(path), Data: data}, nil
}

// findDocuments lists supported files in a folder, sorted by path.
func findDocuments(folderPath string) ([]string, error) {
	var files []string
	err := filepath.Walk(folderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && supportedExtensions[strings.ToLower(filepath.Ext(info.Name()))] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// parseType accepts the Spanish and English names of a batch type. Empty
// means the classifier decides.
func parseType(s string) (models.InvoiceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "income", "ingreso", "ingresos", "venta", "ventas":
		return models.TypeIncome, nil
	case "expense", "egreso", "egresos", "gasto", "gastos", "compra", "compras":
		return models.TypeExpense, nil
	default:
		return "", fmt.Errorf("invalid invoice type: %s (must be 'income' or 'expense')", s)
	}
}
