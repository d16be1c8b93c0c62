package textextract

import (
	"errors"
	"fmt"
)

// Common extraction errors
var (
	// ErrDocumentTooLarge is returned when a document exceeds MaxDocumentBytes.
	ErrDocumentTooLarge = errors.New("document size exceeds the maximum limit (20MB)")

	// ErrUnsupportedFileType is returned for anything that is neither a PDF nor an image.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrInvalidPDF is returned when the provided data is not a valid PDF document.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrInvalidImage is returned when an image cannot be decoded.
	ErrInvalidImage = errors.New("invalid or corrupted image")

	// ErrOCRFailed is returned when an OCR engine fails to process a page.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrNoOCREngine is returned when an image arrives and no engine is configured.
	ErrNoOCREngine = errors.New("no OCR engine configured")

	// ErrMissingCredentials is returned when a cloud engine has no credentials to use.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrTooManyPages is returned when Vision receives a PDF above its synchronous page limit.
	ErrTooManyPages = errors.New("PDF has too many pages (maximum 5 pages for synchronous processing)")

	// ErrUnknownEngine is returned for an OCR_ENGINE value with no implementation.
	ErrUnknownEngine = errors.New("unknown OCR engine")

	// ErrContextCanceled is returned when the context is canceled during extraction.
	ErrContextCanceled = errors.New("text extraction was canceled")
)

// ExtractionError wraps errors with additional context about the extraction failure.
type ExtractionError struct {
	// Op is the operation that failed (e.g., "Extract", "RecognizeImage").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("textextract: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("textextract: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExtractionError creates a new ExtractionError with the specified operation and underlying error.
func NewExtractionError(op string, err error, details string) *ExtractionError {
	return &ExtractionError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapExtractionError wraps an error as an ExtractionError if it isn't already one.
func WrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return err // Already wrapped
	}

	return NewExtractionError(op, err, details)
}
