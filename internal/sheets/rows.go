package sheets

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"facturas/internal/numeric"
	"facturas/pkg/models"
)

// Sheet names per record type.
const (
	IncomeSheet  = "Ingresos"
	ExpenseSheet = "Egresos"
)

// Column layout shared by both sheets.
const (
	colFile = iota
	colID
	colNumber
	colDate
	colType
	colCategory
	colDescription
	colNet
	colVAT
	colOtherTaxes
	colDuplicate
	colCopy
	colConfidence
	colStatus
	colNotes
	colHash
	colProcessedAt

	columnCount
)

const (
	statusOK    = "OK"
	statusError = "Error"
)

// Headers is the header row written to new sheets.
var Headers = []interface{}{
	"Archivo", "ID", "Número", "Fecha", "Tipo", "Categoría", "Descripción",
	"Importe Neto", "IVA", "Otros Impuestos", "Duplicado", "Copia",
	"Confianza", "Estado", "Observaciones", "Hash", "Procesado",
}

// dataRange covers every column of a sheet.
func dataRange(sheetName string) string {
	return fmt.Sprintf("%s!A:%c", sheetName, 'A'+columnCount-1)
}

// SheetFor returns the sheet a record type is written to.
func SheetFor(t models.InvoiceType) string {
	if t == models.TypeExpense {
		return ExpenseSheet
	}
	return IncomeSheet
}

// RecordRow converts a record to sheet values. Only taxes that count are summed.
func RecordRow(rec models.InvoiceRecord, processedAt string) []interface{} {
	vat, other := decimal.Zero, decimal.Zero
	for _, t := range rec.Taxes {
		if !t.ShouldCount {
			continue
		}
		if t.Type == models.TaxIVA {
			vat = vat.Add(t.Amount)
		} else {
			other = other.Add(t.Amount)
		}
	}

	status := statusOK
	notes := ""
	if !rec.Processed {
		status = statusError
		notes = rec.Error
	}

	duplicate, isCopy, confidence := "No", "No", ""
	if a := rec.Analysis; a != nil {
		if a.IsDuplicate {
			duplicate = "Sí"
		}
		if a.IsDuplicateCopy {
			isCopy = "Sí"
		}
		confidence = fmt.Sprintf("%.0f%%", a.Confidence*100)
		if rec.Processed {
			notes = strings.Join(a.Warnings, "; ")
		}
	}

	row := make([]interface{}, columnCount)
	row[colFile] = rec.SourceFile
	row[colID] = rec.ID
	row[colNumber] = rec.Number
	row[colDate] = rec.Date
	row[colType] = string(rec.Type)
	row[colCategory] = rec.Category
	row[colDescription] = rec.Description
	row[colNet] = rec.Amount
	row[colVAT] = vat.StringFixed(2)
	row[colOtherTaxes] = other.StringFixed(2)
	row[colDuplicate] = duplicate
	row[colCopy] = isCopy
	row[colConfidence] = confidence
	row[colStatus] = status
	row[colNotes] = notes
	row[colHash] = rec.ContentHash
	row[colProcessedAt] = processedAt
	return row
}

// ParseCorpusRow reads the duplicate-check fields back from a sheet row.
// Rows of failed files are rejected.
func ParseCorpusRow(row []interface{}, t models.InvoiceType) (models.CorpusEntry, error) {
	if len(row) <= colNet {
		return models.CorpusEntry{}, fmt.Errorf("row has %d columns", len(row))
	}
	if status := getString(row, colStatus); status != "" && status != statusOK {
		return models.CorpusEntry{}, fmt.Errorf("row status %q", status)
	}

	number := getString(row, colNumber)
	if number == "" {
		return models.CorpusEntry{}, fmt.Errorf("row has no invoice number")
	}
	amount, ok := numeric.Clean(getString(row, colNet))
	if !ok {
		return models.CorpusEntry{}, fmt.Errorf("invalid amount %q", getString(row, colNet))
	}

	return models.CorpusEntry{
		ID:          getString(row, colID),
		Number:      number,
		Date:        getString(row, colDate),
		Amount:      numeric.Format(amount),
		Type:        t,
		ContentHash: getString(row, colHash),
	}, nil
}

func getString(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}
