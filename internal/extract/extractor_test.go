package extract

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-sentinel/internal/llm"
)

// stubChat returns a canned response or error without any network I/O.
type stubChat struct {
	content string
	err     error
	calls   int
}

func (s *stubChat) Complete(_ context.Context, _ llm.Credentials, _ llm.ChatRequest) (string, error) {
	s.calls++
	return s.content, s.err
}

func extractionKind(t *testing.T, err error) ErrorKind {
	t.Helper()
	var ee *Error
	require.ErrorAs(t, err, &ee)
	return ee.Kind
}

func TestParseResponseValid(t *testing.T) {
	fields, err := parseResponse(`{"invoice_id":"INV-1001","vendor_name":"Acme Corp","invoice_date":"2024-03-15","total_amount":1234.56}`)
	require.NoError(t, err)
	assert.Equal(t, "INV-1001", fields.InvoiceID)
	assert.Equal(t, "Acme Corp", fields.VendorName)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), fields.InvoiceDate)
	assert.InDelta(t, 1234.56, fields.TotalAmount, 0.0001)
}

func TestParseResponseStripsCodeFences(t *testing.T) {
	fields, err := parseResponse("```json\n{\"invoice_id\":\"7\",\"vendor_name\":\"Acme\",\"invoice_date\":\"2024-03-15\",\"total_amount\":\"99.95\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "7", fields.InvoiceID)
	assert.InDelta(t, 99.95, fields.TotalAmount, 0.0001)
}

func TestParseResponseNumericInvoiceID(t *testing.T) {
	fields, err := parseResponse(`{"invoice_id":1001,"vendor_name":"Acme","invoice_date":"2024-03-15","total_amount":10}`)
	require.NoError(t, err)
	assert.Equal(t, "1001", fields.InvoiceID)
}

func TestParseResponseMalformedJSON(t *testing.T) {
	_, err := parseResponse("the model refused to answer")
	assert.Equal(t, KindMalformedResponse, extractionKind(t, err))
}

func TestParseResponseMissingFields(t *testing.T) {
	_, err := parseResponse(`{"vendor_name":"Acme"}`)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, KindMissingFields, ee.Kind)
	assert.Equal(t, []string{"invoice_id", "invoice_date", "total_amount"}, ee.Fields)
}

func TestParseResponseInvalidAmount(t *testing.T) {
	_, err := parseResponse(`{"invoice_id":"1","vendor_name":"Acme","invoice_date":"2024-03-15","total_amount":"twelve dollars"}`)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, KindInvalidAmount, ee.Kind)
	assert.Equal(t, "twelve dollars", ee.Value)
}

func TestParseResponseInvalidDate(t *testing.T) {
	_, err := parseResponse(`{"invoice_id":"1","vendor_name":"Acme","invoice_date":"sometime in March","total_amount":10}`)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, KindInvalidDate, ee.Kind)
	assert.Equal(t, "sometime in March", ee.Value)
}

// Every accepted layout of the same calendar date must parse to the same day.
func TestParseInvoiceDateRoundTrip(t *testing.T) {
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"2024-03-15", "15-03-2024", "03-15-2024", "Mar 15, 2024"} {
		got, ok := parseInvoiceDate(raw)
		require.True(t, ok, "expected %q to parse", raw)
		assert.True(t, got.Equal(want), "parsed %q to %v, want %v", raw, got, want)
	}
}

func TestParseInvoiceDateRejectsUnknownFormats(t *testing.T) {
	for _, raw := range []string{"", "2024/03/15", "15th of March 2024"} {
		_, ok := parseInvoiceDate(raw)
		assert.False(t, ok, "expected %q to fail", raw)
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences(`{"a":1}`))
}

func TestExtractFieldsUnreadableDocument(t *testing.T) {
	chat := &stubChat{}
	e := NewExtractor(chat, nil)
	_, err := e.ExtractFields(context.Background(), bytes.NewReader([]byte("not a pdf")), llm.Credentials{})
	assert.Equal(t, KindEmptyDocument, extractionKind(t, err))
	assert.Zero(t, chat.calls, "model must not be called without extractable text")
}

// staticText bypasses PDF parsing so the LLM path can be exercised directly.
type staticText struct{ text string }

func (s staticText) Text(io.Reader) (string, error) { return s.text, nil }

func TestExtractFieldsEndToEnd(t *testing.T) {
	chat := &stubChat{content: `{"invoice_id":"INV-9","vendor_name":"Globex Services","invoice_date":"15-03-2024","total_amount":"15000.00"}`}
	e := NewExtractor(chat, nil)
	e.text = staticText{text: "INVOICE\nGlobex Services\nTotal due: $15,000.00"}

	fields, err := e.ExtractFields(context.Background(), bytes.NewReader(nil), llm.Credentials{Deployment: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, 1, chat.calls)
	assert.Equal(t, "INV-9", fields.InvoiceID)
	assert.Equal(t, "Globex Services", fields.VendorName)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), fields.InvoiceDate)
	assert.InDelta(t, 15000.0, fields.TotalAmount, 0.0001)
}

func TestExtractFieldsWhitespaceOnlyText(t *testing.T) {
	chat := &stubChat{}
	e := NewExtractor(chat, nil)
	e.text = staticText{text: "   \n\t  "}

	_, err := e.ExtractFields(context.Background(), bytes.NewReader(nil), llm.Credentials{})
	assert.Equal(t, KindEmptyDocument, extractionKind(t, err))
	assert.Zero(t, chat.calls)
}

func TestExtractFieldsModelError(t *testing.T) {
	chat := &stubChat{err: errors.New("rate limited")}
	e := NewExtractor(chat, nil)
	e.text = staticText{text: "INVOICE #12"}

	_, err := e.ExtractFields(context.Background(), bytes.NewReader(nil), llm.Credentials{})
	assert.Equal(t, KindMalformedResponse, extractionKind(t, err))
}
