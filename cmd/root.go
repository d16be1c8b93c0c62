package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"facturas/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "facturas",
	Short: "Facturas CLI - extract and deduplicate Argentine invoices",
	Long: `Facturas CLI reads invoices (PDF, JPG, PNG, HEIC), extracts their text
with native PDF parsing or Spanish OCR, builds a structured record with
number, date, amount, taxes and category, and reviews it with an AI model
that also flags duplicates against previously processed invoices.

Results can be stored locally, appended to a Google Sheet or exported
as an XLSX workbook.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Facturas CLI executed")

		fmt.Println("Facturas CLI")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
