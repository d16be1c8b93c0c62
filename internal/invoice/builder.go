// Package invoice builds provisional invoice records from extracted text and
// owns the record-level rules: normalization, duplicate keys and amount
// plausibility checks.
//
// The builder composes the field extractors of package fields. It never
// fails: missing values fall back to sentinels (0.00, today's date, a
// synthetic number) and are reported as warnings.
package invoice

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"facturas/internal/fields"
	"facturas/internal/logger"
	"facturas/pkg/models"
)

const maxDescriptionRunes = 120

// BuildOptions carries what the caller knows about a document.
type BuildOptions struct {
	// Type is the batch the user uploaded into. When set it wins over the
	// keyword classifier.
	Type models.InvoiceType

	// SourceFile is recorded on the result.
	SourceFile string
}

// Provisional is the heuristic result for one document before AI validation.
type Provisional struct {
	Record     models.InvoiceRecord
	Warnings   []string
	AmountTier string
}

// Builder composes field extractors into a provisional record.
type Builder struct {
	taxonomy *fields.Taxonomy
	checks   *AmountCheck
	newID    func() string
	log      zerolog.Logger
}

// NewBuilder creates a builder. A nil taxonomy means the built-in one.
func NewBuilder(taxonomy *fields.Taxonomy) *Builder {
	if taxonomy == nil {
		taxonomy = fields.DefaultTaxonomy()
	}
	return &Builder{
		taxonomy: taxonomy,
		checks:   NewAmountCheck(),
		newID:    uuid.NewString,
		log:      logger.WithComponent("record-builder"),
	}
}

// Taxonomy returns the taxonomy used for classification and normalization.
func (b *Builder) Taxonomy() *fields.Taxonomy {
	return b.taxonomy
}

// Build extracts every field from text.
func (b *Builder) Build(text string, opts BuildOptions) Provisional {
	typ := opts.Type
	classified := b.taxonomy.Classify(text)
	if !typ.Valid() {
		typ = classified
	} else if typ != classified {
		b.log.Debug().
			Str("file", opts.SourceFile).
			Str("explicit_type", string(typ)).
			Str("classified_type", string(classified)).
			Msg("Explicit type overrides keyword classification")
	}

	amount, tier, found := fields.FindAmount(text)
	amountStr := models.ZeroAmount
	if found {
		amountStr = amount.StringFixed(2)
	}

	description := describe(text)
	rec := models.InvoiceRecord{
		ID:          b.newID(),
		Type:        typ,
		Number:      fields.ExtractNumber(text),
		Date:        fields.ExtractDate(text),
		Amount:      amountStr,
		Description: description,
		Category:    b.taxonomy.Categorize(text, typ),
		Taxes:       fields.ExtractTaxes(text),
		Processed:   true,
		SourceFile:  opts.SourceFile,
		ContentHash: ContentHash(text),
	}

	var warnings []string
	if !found {
		warnings = append(warnings, "No se encontró un importe confiable; se registró 0.00")
		b.log.Warn().
			Str("file", opts.SourceFile).
			Err(ErrAmountNotFound).
			Msg("Amount fell back to zero")
	}
	if fields.IsSynthetic(rec.Number) {
		warnings = append(warnings, "No se encontró el número de factura; se generó uno provisorio")
	}
	warnings = append(warnings, b.checks.Check(rec)...)

	b.log.Debug().
		Str("file", opts.SourceFile).
		Str("number", rec.Number).
		Str("date", rec.Date).
		Str("amount", rec.Amount).
		Str("amount_tier", tier).
		Int("taxes", len(rec.Taxes)).
		Msg("Provisional record built")

	return Provisional{
		Record:     NormalizeWith(rec, b.taxonomy),
		Warnings:   warnings,
		AmountTier: tier,
	}
}

// Normalize applies NormalizeWith with the builder's taxonomy.
func (b *Builder) Normalize(rec models.InvoiceRecord) models.InvoiceRecord {
	return NormalizeWith(rec, b.taxonomy)
}

// describe picks the first line that reads like a name or concept.
func describe(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if countLetters(line) < 3 || strings.EqualFold(line, "factura") {
			continue
		}
		if utf8.RuneCountInString(line) > maxDescriptionRunes {
			line = string([]rune(line)[:maxDescriptionRunes])
		}
		return line
	}
	return ""
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
