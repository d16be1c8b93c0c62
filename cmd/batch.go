package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"facturas/internal/batch"
	"facturas/internal/export"
	"facturas/internal/logger"
	"facturas/internal/sheets"
	"facturas/internal/store"
	"facturas/pkg/models"
)

const (
	corpusFromStore = "store"
	corpusFromSheet = "sheet"
)

var batchCmd = &cobra.Command{
	Use:   "batch [folder-path]",
	Short: "Process every invoice in a folder and flag duplicates",
	Long: `Process all invoices (PDF, JPG, PNG, HEIC) in a folder, one at a time.

Each file is extracted, turned into a record and reviewed by the AI provider.
Duplicates are flagged against the invoices already processed for --user
and against earlier files of the same batch. Taxes of duplicate copies are
not counted.

Records are stored in the local database (INVOICE_DB_PATH) and can also be
appended to a Google Sheet (--sheet, GOOGLE_SHEET_URL) and exported as XLSX.

Previously processed invoices are read from the local database, or from the
Google Sheet with --corpus sheet.`,
	Example: `  # Process a folder of purchase invoices
  facturas batch ./compras --type expense

  # Let the classifier decide the type and export a workbook
  facturas batch ./facturas --xlsx resumen.xlsx

  # Append to Google Sheets and check duplicates against it
  facturas batch ./ventas --type income --sheet --corpus sheet

  # Dry run: process and report without storing anything
  facturas batch ./facturas --dry-run --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("type", "", "Invoice type for every file (income or expense); classified per file when empty")
	batchCmd.Flags().String("user", "default", "User whose invoices are checked for duplicates")
	batchCmd.Flags().String("corpus", corpusFromStore, "Where previous invoices are read from (store or sheet)")
	batchCmd.Flags().Bool("sheet", false, "Append the records to the Google Sheet in GOOGLE_SHEET_URL")
	batchCmd.Flags().String("xlsx", "", "Write an XLSX workbook to this path")
	batchCmd.Flags().Bool("no-ai", false, "Skip AI validation and keep heuristic data")
	batchCmd.Flags().Bool("dry-run", false, "Process files but don't store or write anything")
	batchCmd.Flags().Bool("verbose", false, "Show detailed processing information")
	batchCmd.Flags().Int("timeout", 1800, "Processing timeout in seconds")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch-cmd")

	folderPath := args[0]
	typeFlag, _ := cmd.Flags().GetString("type")
	userID, _ := cmd.Flags().GetString("user")
	corpusSource, _ := cmd.Flags().GetString("corpus")
	toSheet, _ := cmd.Flags().GetBool("sheet")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	noAI, _ := cmd.Flags().GetBool("no-ai")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	invoiceType, err := parseType(typeFlag)
	if err != nil {
		return err
	}
	if corpusSource != corpusFromStore && corpusSource != corpusFromSheet {
		return fmt.Errorf("invalid corpus source: %s (must be 'store' or 'sheet')", corpusSource)
	}

	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	log.Info().
		Str("folder", folderPath).
		Str("type", string(invoiceType)).
		Str("user", userID).
		Str("corpus", corpusSource).
		Bool("dry_run", dryRun).
		Msg("Starting batch processing")

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("                      PROCESAMIENTO DE FACTURAS")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Carpeta: %s\n", folderPath)
	fmt.Printf("Tipo: %s\n", typeLabel(invoiceType))
	fmt.Printf("Usuario: %s\n", userID)
	if dryRun {
		fmt.Println("Modo: prueba (no se guarda nada)")
	}
	fmt.Println()

	ctx, cancel := createContextWithTimeout(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

	paths, err := findDocuments(folderPath)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}
	if len(paths) == 0 {
		fmt.Println("No se encontraron facturas en la carpeta.")
		return nil
	}

	p, err := newPipeline(ctx, !noAI, log)
	if err != nil {
		return err
	}
	defer p.Close(log)

	db, err := store.Open(p.cfg.InvoiceDBPath)
	if err != nil {
		return fmt.Errorf("failed to open invoice database: %w", err)
	}
	defer db.Close()

	var sheetService *sheets.Service
	if toSheet || corpusSource == corpusFromSheet {
		sheetService, err = newSheetService(ctx, p)
		if err != nil {
			return err
		}
	}

	loader := batch.CorpusLoader(db.ListCorpus)
	if corpusSource == corpusFromSheet {
		loader = sheets.NewCorpusReader(sheetService).ReadCorpus
	}
	session, err := batch.NewRegistry(loader).Session(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load previous invoices: %w", err)
	}

	docs := make([]models.Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("Failed to read file")
			err = fmt.Errorf("failed to read file: %w", err)
		}
		docs = append(docs, models.Document{Name: filepath.Base(path), Data: data, ReadErr: err})
	}

	fmt.Printf("Procesando %d archivos (%d facturas previas)...\n\n", len(docs), len(session.Corpus()))
	records := session.Run(ctx, p.processor(), docs, batch.Options{Type: invoiceType}, progressPrinter(verbose))
	fmt.Println()

	printRecords(records, verbose)
	summary := batch.Summarize(records)
	printSummary(summary)

	if !dryRun {
		if err := db.SaveRecords(ctx, userID, records); err != nil {
			return fmt.Errorf("failed to store records: %w", err)
		}
		fmt.Printf("Base de datos: %s\n", p.cfg.InvoiceDBPath)

		if toSheet {
			fmt.Println("Escribiendo en Google Sheets...")
			if err := sheetService.WriteRecords(ctx, records); err != nil {
				return fmt.Errorf("failed to write to Google Sheet: %w", err)
			}
			fmt.Printf("Filas agregadas: %d\n", len(records))
			fmt.Printf("URL: %s\n", p.cfg.GoogleSheetURL)
		}

		if xlsxPath != "" {
			if err := export.NewWorkbook().Save(xlsxPath, records); err != nil {
				return fmt.Errorf("failed to export workbook: %w", err)
			}
			fmt.Printf("Planilla: %s\n", xlsxPath)
		}
	}

	fmt.Println(strings.Repeat("=", 80))

	log.Info().
		Int("total", summary.Total).
		Int("processed", summary.Processed).
		Int("failed", summary.Failed).
		Int("duplicates", summary.Duplicates).
		Msg("Batch processing completed")

	return nil
}

func newSheetService(ctx context.Context, p *pipeline) (*sheets.Service, error) {
	if p.cfg.GoogleSheetURL == "" {
		return nil, fmt.Errorf("GOOGLE_SHEET_URL environment variable is required")
	}
	credentials, err := p.cfg.GoogleCredentialsJSON()
	if err != nil {
		return nil, err
	}
	s, err := sheets.NewSheetsService(ctx, p.cfg.GoogleSheetURL, credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Sheets service: %w", err)
	}
	return s, nil
}

// progressPrinter prints one line per finished file, and every stage when verbose.
func progressPrinter(verbose bool) batch.ProgressFunc {
	log := logger.WithComponent("batch-progress")
	return func(ev batch.Progress) {
		switch ev.Status {
		case batch.StatusCompleted:
			fmt.Printf("[%d/%d] %3d%% %s - ✅\n", ev.FileIndex+1, ev.TotalFiles, ev.Progress, ev.CurrentFile)
		case batch.StatusError:
			fmt.Printf("[%d/%d] %3d%% %s - ❌ (%s)\n", ev.FileIndex+1, ev.TotalFiles, ev.Progress, ev.CurrentFile, ev.Error)
		default:
			if verbose {
				log.Info().
					Str("status", string(ev.Status)).
					Str("file", ev.CurrentFile).
					Int("progress", ev.Progress).
					Msg("Batch progress")
			}
		}
	}
}

func printRecords(records []models.InvoiceRecord, verbose bool) {
	for _, r := range records {
		if !r.Processed {
			continue
		}
		mark := ""
		if a := r.Analysis; a != nil && a.IsDuplicate {
			mark = " [DUPLICADA]"
		}
		fmt.Printf("%-28s %-8s %-18s %s $ %12s  %s%s\n",
			truncate(r.SourceFile, 28), typeLabel(r.Type), r.Number, r.Date, r.Amount, r.Category, mark)
		if verbose && r.Analysis != nil {
			for _, w := range r.Analysis.Warnings {
				fmt.Printf("    ⚠️  %s\n", w)
			}
		}
	}
	fmt.Println()
}

func printSummary(s batch.Summary) {
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("                 RESULTADO")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Archivos: %d\n", s.Total)
	fmt.Printf("Procesados: %d\n", s.Processed)
	if s.Failed > 0 {
		fmt.Printf("Con error: %d\n", s.Failed)
	}
	if s.Duplicates > 0 {
		fmt.Printf("Duplicadas: %d\n", s.Duplicates)
	}
	if s.WithWarnings > 0 {
		fmt.Printf("Con observaciones: %d\n", s.WithWarnings)
	}
	fmt.Printf("Importe neto: $ %s\n", s.NetAmount.StringFixed(2))
	fmt.Printf("Impuestos computables: $ %s\n", s.CountedTaxes.StringFixed(2))
	fmt.Println()
}

func typeLabel(t models.InvoiceType) string {
	switch t {
	case models.TypeIncome:
		return "Ingreso"
	case models.TypeExpense:
		return "Egreso"
	default:
		return "Automático"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
