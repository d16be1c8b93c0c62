package models

import (
	"github.com/shopspring/decimal"
)

// InvoiceType tells whether a document is money coming in or going out.
type InvoiceType string

const (
	TypeIncome  InvoiceType = "income"
	TypeExpense InvoiceType = "expense"
)

// Valid reports whether t is one of the known invoice types.
func (t InvoiceType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// TaxType is the family a tax line belongs to.
type TaxType string

const (
	TaxIVA        TaxType = "IVA"
	TaxGanancias  TaxType = "Ganancias"
	TaxIIBB       TaxType = "IIBB"
	TaxRetencion  TaxType = "Retención"
	TaxPercepcion TaxType = "Percepción"
)

// ZeroAmount is stored when no amount could be extracted with confidence.
const ZeroAmount = "0.00"

// Document is a raw uploaded file. It is owned by the caller and never retained.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte

	// ReadErr is set when Data could not be loaded. The document then
	// becomes a failed record carrying this error.
	ReadErr error
}

// TaxLineItem is one tax printed on an invoice.
type TaxLineItem struct {
	Name        string          `json:"name"`
	Type        TaxType         `json:"type"`
	Rate        float64         `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
	ShouldCount bool            `json:"shouldCount"`
}

// AIAnalysis is the verdict of the validation stage.
type AIAnalysis struct {
	IsValid           bool     `json:"isValid"`
	IsDuplicate       bool     `json:"isDuplicate"`
	IsDuplicateCopy   bool     `json:"isDuplicateCopy"`
	DuplicateReason   string   `json:"duplicateReason,omitempty"`
	OriginalInvoiceID string   `json:"originalInvoiceId,omitempty"`
	Confidence        float64  `json:"confidence"`
	Warnings          []string `json:"warnings"`
	Suggestions       []string `json:"suggestions"`
}

// InvoiceRecord is the structured result for one document.
// Amount is a decimal string with exactly two decimals and Date is YYYY-MM-DD.
type InvoiceRecord struct {
	ID          string        `json:"id"`
	Type        InvoiceType   `json:"type"`
	Number      string        `json:"number"`
	Date        string        `json:"date"`
	Amount      string        `json:"amount"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Taxes       []TaxLineItem `json:"taxes"`
	Processed   bool          `json:"processed"`
	Error       string        `json:"error,omitempty"`
	SourceFile  string        `json:"sourceFile,omitempty"`
	ContentHash string        `json:"contentHash,omitempty"`
	Analysis    *AIAnalysis   `json:"aiAnalysis,omitempty"`
}

// CorpusEntry is the trimmed view of a known invoice used for duplicate checks.
type CorpusEntry struct {
	ID          string      `json:"id"`
	Number      string      `json:"number"`
	Date        string      `json:"date"`
	Amount      string      `json:"amount"`
	Type        InvoiceType `json:"type"`
	ContentHash string      `json:"contentHash,omitempty"`
}

// Entry returns the corpus view of the record.
func (r InvoiceRecord) Entry() CorpusEntry {
	return CorpusEntry{
		ID:          r.ID,
		Number:      r.Number,
		Date:        r.Date,
		Amount:      r.Amount,
		Type:        r.Type,
		ContentHash: r.ContentHash,
	}
}

// CountedTaxTotal sums the taxes that must be included in aggregates.
func (r InvoiceRecord) CountedTaxTotal() decimal.Decimal {
	total := decimal.Zero
	for _, t := range r.Taxes {
		if t.ShouldCount {
			total = total.Add(t.Amount)
		}
	}
	return total
}
