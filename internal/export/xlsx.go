// Package export renders invoice records as an XLSX workbook.
package export

import (
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"facturas/internal/logger"
	"facturas/internal/numeric"
	"facturas/pkg/models"
)

// Sheet names in the workbook.
const (
	InvoicesSheet = "Facturas"
	TaxesSheet    = "Impuestos"
	SummarySheet  = "Resumen"
)

var (
	invoiceHeaders = []string{
		"Archivo", "Tipo", "Número", "Fecha", "Categoría", "Descripción",
		"Importe Neto", "Impuestos Computables", "Duplicado", "Estado", "Observaciones",
	}
	taxHeaders = []string{"Archivo", "Número", "Impuesto", "Tipo", "Alícuota", "Importe", "Computa"}
)

// Workbook builds XLSX exports.
type Workbook struct {
	log zerolog.Logger
}

// NewWorkbook creates an exporter.
func NewWorkbook() *Workbook {
	return &Workbook{log: logger.WithComponent("export")}
}

// Render returns the workbook bytes for records. Duplicate copies and failed
// files are listed but left out of the summary, and only taxes marked as
// counted are totalled.
func (w *Workbook) Render(records []models.InvoiceRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", InvoicesSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{TaxesSheet, SummarySheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	writeRow(f, InvoicesSheet, 1, toAny(invoiceHeaders))
	writeRow(f, TaxesSheet, 1, toAny(taxHeaders))

	totals := newTotals()
	taxRow := 2
	for i, r := range records {
		writeRow(f, InvoicesSheet, i+2, invoiceRow(r))
		for _, t := range r.Taxes {
			writeRow(f, TaxesSheet, taxRow, []any{
				r.SourceFile, r.Number, t.Name, string(t.Type), t.Rate, t.Amount.InexactFloat64(), yesNo(t.ShouldCount),
			})
			taxRow++
		}
		totals.add(r)
	}
	totals.write(f)

	_ = f.SetColWidth(InvoicesSheet, "A", "A", 28)
	_ = f.SetColWidth(InvoicesSheet, "C", "C", 20)
	_ = f.SetColWidth(InvoicesSheet, "D", "E", 16)
	_ = f.SetColWidth(InvoicesSheet, "F", "F", 40)
	_ = f.SetColWidth(InvoicesSheet, "G", "H", 16)
	_ = f.SetColWidth(InvoicesSheet, "K", "K", 60)
	_ = f.SetColWidth(TaxesSheet, "A", "C", 24)
	_ = f.SetColWidth(SummarySheet, "A", "A", 32)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	w.log.Info().
		Int("records", len(records)).
		Int("tax_lines", taxRow-2).
		Msg("Workbook rendered")
	return buf.Bytes(), nil
}

// Save renders records and writes the workbook to path.
func (w *Workbook) Save(path string, records []models.InvoiceRecord) error {
	data, err := w.Render(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("xlsx save %s: %w", path, err)
	}
	w.log.Info().Str("path", path).Msg("Workbook saved")
	return nil
}

func invoiceRow(r models.InvoiceRecord) []any {
	status, notes := "OK", ""
	duplicate := "No"
	if !r.Processed {
		status, notes = "Error", r.Error
	}
	if a := r.Analysis; a != nil {
		if a.IsDuplicateCopy {
			duplicate = "Copia"
		} else if a.IsDuplicate {
			duplicate = "Sí"
		}
		if r.Processed && len(a.Warnings) > 0 {
			notes = fmt.Sprint(a.Warnings)
		}
	}
	return []any{
		r.SourceFile, string(r.Type), r.Number, r.Date, r.Category, r.Description,
		amountValue(r.Amount), r.CountedTaxTotal().InexactFloat64(), duplicate, status, notes,
	}
}

// totals accumulates the summary sheet.
type totals struct {
	net   map[models.InvoiceType]decimal.Decimal
	taxes map[models.TaxType]decimal.Decimal
	count map[string]int
}

func newTotals() *totals {
	return &totals{
		net:   make(map[models.InvoiceType]decimal.Decimal),
		taxes: make(map[models.TaxType]decimal.Decimal),
		count: make(map[string]int),
	}
}

func (t *totals) add(r models.InvoiceRecord) {
	switch {
	case !r.Processed:
		t.count["failed"]++
		return
	case r.Analysis != nil && r.Analysis.IsDuplicateCopy:
		t.count["copies"]++
		return
	}
	t.count["counted"]++
	if d, ok := numeric.Clean(r.Amount); ok {
		t.net[r.Type] = t.net[r.Type].Add(d)
	}
	for _, tax := range r.Taxes {
		if tax.ShouldCount {
			t.taxes[tax.Type] = t.taxes[tax.Type].Add(tax.Amount)
		}
	}
}

func (t *totals) write(f *excelize.File) {
	rows := [][]any{
		{"Concepto", "Valor"},
		{"Facturas computadas", t.count["counted"]},
		{"Copias duplicadas", t.count["copies"]},
		{"Archivos con error", t.count["failed"]},
		{"Neto ingresos", t.net[models.TypeIncome].InexactFloat64()},
		{"Neto egresos", t.net[models.TypeExpense].InexactFloat64()},
	}

	types := make([]string, 0, len(t.taxes))
	for k := range t.taxes {
		types = append(types, string(k))
	}
	sort.Strings(types)
	for _, k := range types {
		rows = append(rows, []any{"Impuestos " + k, t.taxes[models.TaxType(k)].InexactFloat64()})
	}

	for i, row := range rows {
		writeRow(f, SummarySheet, i+1, row)
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func amountValue(s string) any {
	if d, ok := numeric.Clean(s); ok {
		return d.InexactFloat64()
	}
	return 0.0
}

func yesNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
