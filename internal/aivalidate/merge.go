package aivalidate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"facturas/internal/invoice"
	"facturas/internal/numeric"
	"facturas/pkg/models"
)

// FallbackConfidence is assigned when the model's verdict is unavailable.
const FallbackConfidence = 0.5

// apply merges a parsed verdict into the provisional record.
func (v *Validator) apply(prov invoice.Provisional, patch *Patch, corpus []models.CorpusEntry) Result {
	rec := prov.Record
	if cd := patch.CorrectedData; cd != nil {
		applyCorrections(&rec, cd)
	}
	rec.Analysis = nil
	rec = invoice.NormalizeWith(rec, v.taxonomy)

	analysis := models.AIAnalysis{
		IsValid:           patch.IsValid,
		IsDuplicate:       patch.IsDuplicate,
		IsDuplicateCopy:   patch.IsDuplicateCopy,
		DuplicateReason:   patch.DuplicateReason,
		OriginalInvoiceID: patch.OriginalInvoiceID,
		Confidence:        confidence(patch.Confidence),
		Warnings:          append(append([]string{}, prov.Warnings...), patch.Warnings...),
		Suggestions:       patch.Suggestions,
	}
	markLocalDuplicate(rec, corpus, &analysis)

	return v.finish(rec, analysis, false, nil)
}

// fallback keeps the heuristic record when the verdict is unusable.
func (v *Validator) fallback(prov invoice.Provisional, corpus []models.CorpusEntry, cause error) Result {
	rec := prov.Record
	rec.Analysis = nil

	analysis := models.AIAnalysis{
		IsValid:    rec.Amount != models.ZeroAmount,
		Confidence: FallbackConfidence,
		Warnings: append(append([]string{}, prov.Warnings...),
			fmt.Sprintf("El análisis con IA no se completó; se usan los datos heurísticos (%v)", cause)),
	}
	markLocalDuplicate(rec, corpus, &analysis)

	return v.finish(rec, analysis, true, cause)
}

func (v *Validator) finish(rec models.InvoiceRecord, analysis models.AIAnalysis, degraded bool, cause error) Result {
	rec.Analysis = &analysis
	rec = invoice.NormalizeWith(rec, v.taxonomy)
	return Result{
		Analysis:  *rec.Analysis,
		Corrected: rec,
		Degraded:  degraded,
		Err:       cause,
	}
}

// markLocalDuplicate flags a record whose number, date and amount match a
// known invoice as a duplicate copy.
func markLocalDuplicate(rec models.InvoiceRecord, corpus []models.CorpusEntry, a *models.AIAnalysis) {
	dup, ok := invoice.FindDuplicate(rec.Entry(), corpus)
	if !ok {
		return
	}
	a.IsDuplicate = true
	a.IsDuplicateCopy = true
	if a.OriginalInvoiceID == "" {
		a.OriginalInvoiceID = dup.ID
	}
	if a.DuplicateReason == "" {
		a.DuplicateReason = fmt.Sprintf("Mismo número, fecha e importe que la factura %s ya registrada", dup.Number)
	}
}

func applyCorrections(rec *models.InvoiceRecord, cd *CorrectedData) {
	if s := strings.TrimSpace(cd.Number); s != "" {
		rec.Number = s
	}
	if s := strings.TrimSpace(cd.Date); s != "" {
		rec.Date = s
	}
	if d, ok := cd.Amount.Decimal(); ok {
		rec.Amount = numeric.Format(d)
	}
	if s := strings.TrimSpace(cd.Type); s != "" {
		rec.Type = models.InvoiceType(s)
	}
	if s := strings.TrimSpace(cd.Description); s != "" {
		rec.Description = s
	}
	if s := strings.TrimSpace(cd.Category); s != "" {
		rec.Category = s
	}
	if cd.Taxes != nil {
		rec.Taxes = make([]models.TaxLineItem, 0, len(cd.Taxes))
		for _, t := range cd.Taxes {
			rec.Taxes = append(rec.Taxes, patchTax(t))
		}
	}
}

func patchTax(t PatchTax) models.TaxLineItem {
	amount := decimal.Zero
	if d, ok := t.Amount.Decimal(); ok {
		amount = d.Round(2)
	}
	var rate float64
	if r, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSuffix(strings.TrimSpace(string(t.Rate)), "%"), ",", "."), 64); err == nil {
		rate = r
	}
	shouldCount := true
	if t.ShouldCount != nil {
		shouldCount = *t.ShouldCount
	}
	return models.TaxLineItem{
		Name:        t.Name,
		Type:        models.TaxType(t.Type),
		Rate:        rate,
		Amount:      amount,
		ShouldCount: shouldCount,
	}
}

// confidence accepts a 0-1 ratio or a 0-100 percentage.
func confidence(c *float64) float64 {
	if c == nil {
		return FallbackConfidence
	}
	if *c > 1 {
		return *c / 100
	}
	return *c
}
