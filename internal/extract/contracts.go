package extract

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"invoice-sentinel/internal/llm"
)

// InvoiceFields is the normalized, validated shape we want from the LLM.
// It exists only between extraction and scoring and is never persisted as-is.
type InvoiceFields struct {
	InvoiceID   string    // invoice number printed on the document
	VendorName  string    // issuing company
	InvoiceDate time.Time // date on the invoice (date-only)
	TotalAmount float64   // non-negative decimal
}

// FieldExtractor is the interface the pipeline depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, doc io.Reader, creds llm.Credentials) (InvoiceFields, error)
}

// ErrorKind identifies why extraction failed. All kinds are terminal for the
// document; callers must not retry automatically.
type ErrorKind string

const (
	KindEmptyDocument     ErrorKind = "empty_document"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindMissingFields     ErrorKind = "missing_fields"
	KindInvalidAmount     ErrorKind = "invalid_amount"
	KindInvalidDate       ErrorKind = "invalid_date"
)

// Error is the extraction failure surfaced to callers, carrying enough detail
// (offending field names or raw value) for a human operator to correct and resubmit.
type Error struct {
	Kind   ErrorKind
	Fields []string // populated for KindMissingFields
	Value  string   // offending raw value for KindInvalidAmount / KindInvalidDate
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindEmptyDocument:
		if e.Err != nil {
			return fmt.Sprintf("document is empty or contains no extractable text: %v", e.Err)
		}
		return "document is empty or contains no extractable text"
	case KindMalformedResponse:
		return fmt.Sprintf("model response is not valid JSON: %v", e.Err)
	case KindMissingFields:
		return "model response missing required fields: " + strings.Join(e.Fields, ", ")
	case KindInvalidAmount:
		return fmt.Sprintf("invalid amount format returned by model: %q", e.Value)
	case KindInvalidDate:
		return fmt.Sprintf("invalid date format returned by model: %q", e.Value)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }
