package batch

import (
	"github.com/shopspring/decimal"

	"facturas/internal/numeric"
	"facturas/pkg/models"
)

// Summary aggregates the results of a batch. Taxes of duplicate copies are
// excluded from CountedTaxes.
type Summary struct {
	Total        int
	Processed    int
	Failed       int
	Duplicates   int
	WithWarnings int
	NetAmount    decimal.Decimal
	CountedTaxes decimal.Decimal
}

// Summarize counts results and sums the amounts of non-duplicate records.
func Summarize(records []models.InvoiceRecord) Summary {
	s := Summary{
		Total:        len(records),
		NetAmount:    decimal.Zero,
		CountedTaxes: decimal.Zero,
	}
	for _, r := range records {
		if !r.Processed {
			s.Failed++
			continue
		}
		s.Processed++
		s.CountedTaxes = s.CountedTaxes.Add(r.CountedTaxTotal())

		if r.Analysis != nil {
			if len(r.Analysis.Warnings) > 0 {
				s.WithWarnings++
			}
			if r.Analysis.IsDuplicateCopy {
				s.Duplicates++
				continue
			}
		}
		if d, ok := numeric.Clean(r.Amount); ok {
			s.NetAmount = s.NetAmount.Add(d)
		}
	}
	return s
}
