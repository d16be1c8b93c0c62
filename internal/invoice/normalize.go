package invoice

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"facturas/internal/fields"
	"facturas/internal/numeric"
	"facturas/pkg/models"
)

// Normalize canonicalizes every field of a record against the built-in
// taxonomy. Applying it to its own output changes nothing.
func Normalize(rec models.InvoiceRecord) models.InvoiceRecord {
	return NormalizeWith(rec, fields.DefaultTaxonomy())
}

// NormalizeWith is Normalize with an explicit taxonomy.
func NormalizeWith(rec models.InvoiceRecord, tx *fields.Taxonomy) models.InvoiceRecord {
	out := rec
	out.ID = strings.TrimSpace(rec.ID)
	out.Type = NormalizeType(string(rec.Type))
	out.Number = normalizeNumber(rec.Number)
	out.Date = NormalizeDate(rec.Date)
	out.Amount = NormalizeAmount(rec.Amount)
	out.Description = strings.Join(strings.Fields(rec.Description), " ")
	out.Category = strings.TrimSpace(rec.Category)
	if !tx.Has(out.Type, out.Category) {
		out.Category = tx.Categorize(out.Description, out.Type)
	}
	out.Error = strings.TrimSpace(rec.Error)

	var analysis *models.AIAnalysis
	if rec.Analysis != nil {
		a := normalizeAnalysis(*rec.Analysis)
		analysis = &a
	}
	out.Analysis = analysis

	isCopy := analysis != nil && analysis.IsDuplicateCopy
	out.Taxes = make([]models.TaxLineItem, 0, len(rec.Taxes))
	for _, t := range rec.Taxes {
		out.Taxes = append(out.Taxes, normalizeTax(t, isCopy))
	}
	return out
}

// NormalizeType maps Spanish and English spellings onto the two record types.
// Anything unrecognized is income.
func NormalizeType(s string) models.InvoiceType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expense", "gasto", "egreso", "compra", "payable":
		return models.TypeExpense
	default:
		return models.TypeIncome
	}
}

// NormalizeDate returns s as YYYY-MM-DD. Day-first dates are converted and
// anything unreadable becomes today.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(fields.DateLayout, s); err == nil {
		return t.Format(fields.DateLayout)
	}
	if len(s) >= 10 {
		if t, err := time.Parse(fields.DateLayout, s[:10]); err == nil {
			return t.Format(fields.DateLayout)
		}
	}
	return fields.ExtractDate(s)
}

// NormalizeAmount returns s with two decimals, or the zero sentinel.
func NormalizeAmount(s string) string {
	d, ok := numeric.Clean(s)
	if !ok {
		return models.ZeroAmount
	}
	return numeric.Format(d)
}

func normalizeNumber(s string) string {
	s = strings.ToUpper(strings.Join(strings.Fields(s), " "))
	if s == "" {
		return fields.SyntheticNumber()
	}
	return s
}

func normalizeTax(t models.TaxLineItem, isCopy bool) models.TaxLineItem {
	out := t
	out.Type = normalizeTaxType(string(t.Type))
	out.Name = strings.Join(strings.Fields(t.Name), " ")
	if out.Name == "" {
		out.Name = string(out.Type)
	}
	out.Rate = math.Round(math.Max(t.Rate, 0)*100) / 100
	if t.Amount.IsNegative() {
		out.Amount = decimal.Zero
	}
	out.Amount = out.Amount.Round(2)
	if isCopy {
		out.ShouldCount = false
	}
	return out
}

func normalizeTaxType(s string) models.TaxType {
	l := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(l, "ganancia"):
		return models.TaxGanancias
	case strings.Contains(l, "iibb"), strings.Contains(l, "brutos"):
		return models.TaxIIBB
	case strings.HasPrefix(l, "percep"):
		return models.TaxPercepcion
	case strings.HasPrefix(l, "reten"):
		return models.TaxRetencion
	case strings.Contains(l, "iva"), strings.Contains(l, "i.v.a"):
		return models.TaxIVA
	default:
		return models.TaxRetencion
	}
}

func normalizeAnalysis(a models.AIAnalysis) models.AIAnalysis {
	out := a
	out.Confidence = math.Min(math.Max(a.Confidence, 0), 1)
	if out.IsDuplicateCopy {
		out.IsDuplicate = true
	}
	out.DuplicateReason = strings.TrimSpace(a.DuplicateReason)
	out.OriginalInvoiceID = strings.TrimSpace(a.OriginalInvoiceID)
	out.Warnings = uniqueStrings(a.Warnings)
	out.Suggestions = uniqueStrings(a.Suggestions)
	return out
}

func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
