// Package aivalidate asks a text-generation model to review a provisional
// invoice record against the invoices already known for the batch, and
// merges the verdict into the final record.
//
// Validation never fails. When the model is unavailable or its reply cannot
// be parsed, the heuristic record is kept with reduced confidence and a
// warning. The exact-key duplicate check runs locally on every path.
package aivalidate

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"facturas/internal/fields"
	"facturas/internal/invoice"
	"facturas/internal/logger"
	"facturas/pkg/models"
)

var (
	// ErrAIResponseUnparseable is returned when a reply holds no usable JSON verdict.
	ErrAIResponseUnparseable = errors.New("AI response could not be parsed")

	// ErrNoGenerator is reported when validation runs without a model.
	ErrNoGenerator = errors.New("no text generator configured")
)

// Generator sends one prompt to a text-generation model and returns its reply.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result is the outcome of validating one record.
type Result struct {
	// Analysis is also attached to Corrected.
	Analysis models.AIAnalysis

	// Corrected is the normalized final record.
	Corrected models.InvoiceRecord

	// Degraded is set when the model's verdict could not be used.
	Degraded bool

	// Err is the generator or parse error behind a degraded result.
	Err error
}

// Validator reviews provisional records with a Generator.
type Validator struct {
	gen      Generator
	taxonomy *fields.Taxonomy
	log      zerolog.Logger
}

// NewValidator creates a validator. A nil generator degrades every result;
// a nil taxonomy means the built-in one.
func NewValidator(gen Generator, taxonomy *fields.Taxonomy) *Validator {
	if taxonomy == nil {
		taxonomy = fields.DefaultTaxonomy()
	}
	return &Validator{
		gen:      gen,
		taxonomy: taxonomy,
		log:      logger.WithComponent("ai-validator"),
	}
}

// Validate reviews a provisional record against the corpus.
func (v *Validator) Validate(ctx context.Context, prov invoice.Provisional, rawText string, corpus []models.CorpusEntry) Result {
	log := v.log.With().
		Str("file", prov.Record.SourceFile).
		Str("number", prov.Record.Number).
		Logger()

	patch, err := v.ask(ctx, prov.Record, rawText, corpus)
	if err != nil {
		log.Warn().Err(err).Msg("AI validation degraded to heuristic data")
		return v.fallback(prov, corpus, err)
	}

	res := v.apply(prov, patch, corpus)
	log.Info().
		Bool("valid", res.Analysis.IsValid).
		Bool("duplicate", res.Analysis.IsDuplicate).
		Bool("copy", res.Analysis.IsDuplicateCopy).
		Float64("confidence", res.Analysis.Confidence).
		Msg("AI validation complete")
	return res
}

func (v *Validator) ask(ctx context.Context, rec models.InvoiceRecord, rawText string, corpus []models.CorpusEntry) (*Patch, error) {
	if v.gen == nil {
		return nil, ErrNoGenerator
	}

	prompt := buildPrompt(rec, rawText, corpus)
	v.log.Debug().
		Int("prompt_length", len(prompt)).
		Int("corpus", len(corpus)).
		Msg("Sending validation request")

	reply, err := v.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return ParsePatch(reply)
}
