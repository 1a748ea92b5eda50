package extract

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"time"

	"invoice-sentinel/internal/llm"
)

// TextExtractor produces the raw text of a document. The default
// implementation reads PDFs; tests substitute their own.
type TextExtractor interface {
	Text(doc io.Reader) (string, error)
}

type pdfTextExtractor struct{}

func (pdfTextExtractor) Text(doc io.Reader) (string, error) { return pdfText(doc) }

// Extractor turns raw invoice documents into validated InvoiceFields by
// delegating natural-language understanding to a chat-completion call.
// It holds no mutable state; one instance is safe for concurrent use.
type Extractor struct {
	chat   llm.ChatClient
	text   TextExtractor
	logger *slog.Logger
}

func NewExtractor(chat llm.ChatClient, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{chat: chat, text: pdfTextExtractor{}, logger: logger}
}

// ExtractFields extracts text from the document, asks the model for the four
// invoice fields, and validates/normalizes the response. Every failure is a
// *Error and terminal for this document.
func (e *Extractor) ExtractFields(ctx context.Context, doc io.Reader, creds llm.Credentials) (InvoiceFields, error) {
	start := time.Now()

	rawText, err := e.text.Text(doc)
	if err != nil {
		e.logger.Error("extract.pdf_error", "error", err)
		return InvoiceFields{}, &Error{Kind: KindEmptyDocument, Err: err}
	}
	if strings.TrimSpace(rawText) == "" {
		e.logger.Error("extract.empty_document")
		return InvoiceFields{}, &Error{Kind: KindEmptyDocument}
	}

	e.logger.Info("extract.start", "deployment", creds.Deployment, "text_len", len(rawText))

	content, err := e.chat.Complete(ctx, creds, llm.ChatRequest{
		Messages:    []llm.Message{{Role: "user", Content: BuildExtractionPrompt(rawText)}},
		Temperature: 0,
	})
	if err != nil {
		e.logger.Error("extract.llm_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return InvoiceFields{}, &Error{Kind: KindMalformedResponse, Err: err}
	}

	fields, err := parseResponse(content)
	if err != nil {
		e.logger.Error("extract.validation_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return InvoiceFields{}, err
	}

	e.logger.Info("extract.ok",
		"invoice_id", fields.InvoiceID,
		"vendor", fields.VendorName,
		"date", fields.InvoiceDate.Format("2006-01-02"),
		"amount", fields.TotalAmount,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return fields, nil
}

// parseResponse validates the model output strictly at the boundary and
// converts it to a typed record; nothing downstream touches untyped JSON.
func parseResponse(content string) (InvoiceFields, error) {
	cleaned := []byte(StripCodeFences(content))

	var m map[string]any
	if err := json.Unmarshal(cleaned, &m); err != nil {
		return InvoiceFields{}, &Error{Kind: KindMalformedResponse, Err: err}
	}

	var missing []string
	for _, k := range requiredFields {
		if _, ok := m[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return InvoiceFields{}, &Error{Kind: KindMissingFields, Fields: missing}
	}

	if err := ValidateJSONAgainstSchema(BuildInvoiceJSONSchema(), cleaned); err != nil {
		return InvoiceFields{}, &Error{Kind: KindMalformedResponse, Err: err}
	}

	amount, ok := coerceAmount(m["total_amount"])
	if !ok {
		return InvoiceFields{}, &Error{Kind: KindInvalidAmount, Value: stringify(m["total_amount"])}
	}

	rawDate, _ := m["invoice_date"].(string)
	date, ok := parseInvoiceDate(rawDate)
	if !ok {
		return InvoiceFields{}, &Error{Kind: KindInvalidDate, Value: rawDate}
	}

	return InvoiceFields{
		InvoiceID:   stringify(m["invoice_id"]),
		VendorName:  strings.TrimSpace(m["vendor_name"].(string)),
		InvoiceDate: date,
		TotalAmount: amount,
	}, nil
}
