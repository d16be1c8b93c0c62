package sheets

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"facturas/internal/logger"
	"facturas/pkg/models"
)

// RangeReader reads a range of cell values.
type RangeReader interface {
	ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error)
}

// CorpusReader rebuilds the duplicate-check corpus from both record sheets.
type CorpusReader struct {
	reader RangeReader
	log    zerolog.Logger
}

// NewCorpusReader creates a reader over a spreadsheet.
func NewCorpusReader(reader RangeReader) *CorpusReader {
	return &CorpusReader{reader: reader, log: logger.WithComponent("sheets-reader")}
}

// ReadCorpus returns the processed records of both sheets, income first.
// The user ID is accepted to match batch.CorpusLoader; a spreadsheet holds
// the records of a single user.
func (cr *CorpusReader) ReadCorpus(ctx context.Context, _ string) ([]models.CorpusEntry, error) {
	const op = "ReadCorpus"

	var corpus []models.CorpusEntry
	for _, t := range []models.InvoiceType{models.TypeIncome, models.TypeExpense} {
		sheetName := SheetFor(t)
		values, err := cr.reader.ReadRange(ctx, dataRange(sheetName))
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read %s sheet: %w", op, sheetName, err)
		}
		if len(values) == 0 {
			cr.log.Debug().Str("sheet", sheetName).Msg("Sheet is empty")
			continue
		}

		parsed := 0
		for i, row := range values[1:] {
			rowNum := i + 2 // Account for header and 0-based indexing

			entry, err := ParseCorpusRow(row, t)
			if err != nil {
				cr.log.Debug().
					Err(err).
					Int("row", rowNum).
					Str("sheet", sheetName).
					Msg("Skipping row")
				continue
			}
			corpus = append(corpus, entry)
			parsed++
		}

		cr.log.Info().
			Int("total_rows", len(values)-1).
			Int("parsed_entries", parsed).
			Str("sheet", sheetName).
			Msg("Corpus read from sheet")
	}
	return corpus, nil
}
