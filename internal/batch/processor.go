// Package batch runs uploaded documents through extraction, heuristic
// building and AI validation, one file at a time.
//
// Files are processed strictly in order. Each finalized record joins the
// corpus before the next file starts, so a document repeated inside one
// batch is detected as a duplicate of its earlier copy. A failure in one
// file never stops the batch: it yields a record with Processed=false and
// the error message.
package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"facturas/internal/aivalidate"
	"facturas/internal/fields"
	"facturas/internal/invoice"
	"facturas/internal/logger"
	"facturas/pkg/models"
)

// Status is the stage reported in a progress event.
type Status string

const (
	StatusExtracting Status = "extracting"
	StatusAnalyzing  Status = "analyzing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// ErrCanceled is recorded on files left unprocessed when the batch context ends.
var ErrCanceled = errors.New("batch processing was canceled")

// Progress is emitted at the start of extraction, the start of analysis and
// the end of every file.
type Progress struct {
	Status      Status `json:"status"`
	Progress    int    `json:"progress"` // 0-100 over the whole batch
	CurrentFile string `json:"currentFile"`
	FileIndex   int    `json:"fileIndex"`
	TotalFiles  int    `json:"totalFiles"`
	Error       string `json:"error,omitempty"`
}

// ProgressFunc receives progress events. It is called synchronously.
type ProgressFunc func(Progress)

// Options applies to every file of a batch.
type Options struct {
	// Type is the batch the user uploaded into. It is authoritative over
	// both the keyword classifier and the model.
	Type models.InvoiceType
}

// Extractor returns the text of a document; empty text means none was recoverable.
type Extractor interface {
	Extract(ctx context.Context, doc models.Document) (string, error)
}

// Reviewer validates a provisional record against the corpus.
type Reviewer interface {
	Validate(ctx context.Context, prov invoice.Provisional, rawText string, corpus []models.CorpusEntry) aivalidate.Result
}

// Processor runs batches.
type Processor struct {
	extractor Extractor
	builder   *invoice.Builder
	reviewer  Reviewer
	log       zerolog.Logger
}

// NewProcessor wires the pipeline stages. A nil builder uses the built-in taxonomy.
func NewProcessor(extractor Extractor, builder *invoice.Builder, reviewer Reviewer) *Processor {
	if builder == nil {
		builder = invoice.NewBuilder(nil)
	}
	return &Processor{
		extractor: extractor,
		builder:   builder,
		reviewer:  reviewer,
		log:       logger.WithComponent("batch"),
	}
}

// ProcessBatch processes files in order and returns one record per file in
// the same order. existing seeds the corpus and is not modified.
func (p *Processor) ProcessBatch(ctx context.Context, files []models.Document, existing []models.CorpusEntry, opts Options, onProgress ProgressFunc) []models.InvoiceRecord {
	total := len(files)
	corpus := make([]models.CorpusEntry, len(existing), len(existing)+total)
	copy(corpus, existing)

	emit := func(status Status, i, percent int, file string, err error) {
		if onProgress == nil {
			return
		}
		ev := Progress{
			Status:      status,
			Progress:    percent,
			CurrentFile: file,
			FileIndex:   i,
			TotalFiles:  total,
		}
		if err != nil {
			ev.Error = err.Error()
		}
		onProgress(ev)
	}

	p.log.Info().
		Int("files", total).
		Int("corpus", len(existing)).
		Str("type", string(opts.Type)).
		Msg("Starting batch")

	results := make([]models.InvoiceRecord, 0, total)
	for i, doc := range files {
		emit(StatusExtracting, i, i*100/total, doc.Name, nil)

		var (
			rec models.InvoiceRecord
			err error
		)
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = invoice.WrapProcessingError("ProcessBatch", doc.Name, ErrCanceled, ctxErr.Error())
		} else {
			rec, err = p.processOne(ctx, doc, corpus, opts, func() {
				emit(StatusAnalyzing, i, (i*100+50)/total, doc.Name, nil)
			})
		}

		if err != nil {
			p.log.Error().
				Err(err).
				Str("file", doc.Name).
				Int("index", i+1).
				Msg("File failed")
			rec = p.failedRecord(doc, opts.Type, err)
			results = append(results, rec)
			emit(StatusError, i, (i+1)*100/total, doc.Name, err)
			continue
		}

		corpus = append(corpus, rec.Entry())
		results = append(results, rec)
		emit(StatusCompleted, i, (i+1)*100/total, doc.Name, nil)
	}

	summary := Summarize(results)
	p.log.Info().
		Int("total", summary.Total).
		Int("processed", summary.Processed).
		Int("failed", summary.Failed).
		Int("duplicates", summary.Duplicates).
		Msg("Batch completed")
	return results
}

// processOne turns one document into a finalized record. Panics in any
// stage are returned as errors.
func (p *Processor) processOne(ctx context.Context, doc models.Document, corpus []models.CorpusEntry, opts Options, analyzing func()) (rec models.InvoiceRecord, err error) {
	const op = "processOne"

	defer func() {
		if r := recover(); r != nil {
			err = invoice.WrapProcessingError(op, doc.Name, invoice.ErrProcessingPanic, fmt.Sprint(r))
		}
	}()

	if doc.ReadErr != nil {
		return rec, invoice.WrapProcessingError(op, doc.Name, doc.ReadErr, "read file")
	}

	text, err := p.extractor.Extract(ctx, doc)
	if err != nil {
		return rec, invoice.WrapProcessingError(op, doc.Name, err, "text extraction")
	}
	if strings.TrimSpace(text) == "" {
		return rec, invoice.WrapProcessingError(op, doc.Name, invoice.ErrExtractionFailure, "")
	}

	analyzing()
	prov := p.builder.Build(text, invoice.BuildOptions{Type: opts.Type, SourceFile: doc.Name})

	rec = prov.Record
	if p.reviewer != nil {
		res := p.reviewer.Validate(ctx, prov, text, corpus)
		rec = res.Corrected
	}

	if opts.Type.Valid() && rec.Type != opts.Type {
		p.log.Debug().
			Str("file", doc.Name).
			Str("validated_type", string(rec.Type)).
			Str("batch_type", string(opts.Type)).
			Msg("Batch type overrides validated type")
		rec.Type = opts.Type
	}
	return p.builder.Normalize(rec), nil
}

// failedRecord builds the placeholder returned for a file that could not be processed.
func (p *Processor) failedRecord(doc models.Document, typ models.InvoiceType, err error) models.InvoiceRecord {
	return p.builder.Normalize(models.InvoiceRecord{
		ID:          uuid.NewString(),
		Type:        typ,
		Number:      fields.SyntheticNumber(),
		Date:        fields.Today(),
		Amount:      models.ZeroAmount,
		Description: doc.Name,
		Processed:   false,
		Error:       err.Error(),
		SourceFile:  doc.Name,
	})
}
