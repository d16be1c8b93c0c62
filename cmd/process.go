package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"facturas/internal/batch"
	"facturas/internal/logger"
	"facturas/internal/store"
	"facturas/pkg/models"
)

var processCmd = &cobra.Command{
	Use:   "process [file]",
	Short: "Extract a structured invoice record from a single file",
	Long: `Extract the text of one invoice, build a record (number, date, amount,
taxes, category) and review it with the AI provider selected by AI_PROVIDER.

The record is compared with the invoices already stored for --user in the
local database (INVOICE_DB_PATH) to flag duplicates. The output is always JSON.`,
	Example: `  # Process an expense invoice
  facturas process factura.pdf --type expense

  # Heuristics only, no AI call
  facturas process ticket.jpg --no-ai

  # Process and store the record for later duplicate checks
  facturas process factura.pdf --user estudio --save`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	processCmd.Flags().String("type", "", "Invoice type (income or expense); classified from the text when empty")
	processCmd.Flags().String("user", "default", "User whose stored invoices are checked for duplicates")
	processCmd.Flags().Bool("no-ai", false, "Skip AI validation and output heuristic data")
	processCmd.Flags().Bool("save", false, "Store the record in the local database")
	processCmd.Flags().Int("timeout", 180, "Processing timeout in seconds")
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("process")

	outputPath, _ := cmd.Flags().GetString("output")
	typeFlag, _ := cmd.Flags().GetString("type")
	userID, _ := cmd.Flags().GetString("user")
	noAI, _ := cmd.Flags().GetBool("no-ai")
	save, _ := cmd.Flags().GetBool("save")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	invoiceType, err := parseType(typeFlag)
	if err != nil {
		return err
	}

	doc, err := readDocument(args[0], log)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(time.Duration(timeoutSecs)*time.Second, log)
	defer cancel()

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

	corpus, err := db.ListCorpus(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load stored invoices: %w", err)
	}

	records := p.processor().ProcessBatch(ctx, []models.Document{doc}, corpus, batch.Options{Type: invoiceType}, nil)
	rec := records[0]

	log.Info().
		Str("file", doc.Name).
		Str("number", rec.Number).
		Str("amount", rec.Amount).
		Bool("processed", rec.Processed).
		Msg("Invoice processed")

	if save && rec.Processed {
		if err := db.SaveRecords(ctx, userID, records); err != nil {
			return fmt.Errorf("failed to store record: %w", err)
		}
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	if err := writeOutput(out, outputPath, log); err != nil {
		return err
	}
	if !rec.Processed {
		return fmt.Errorf("processing failed: %s", rec.Error)
	}
	return nil
}
