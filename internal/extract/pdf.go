package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfText extracts text from every page of a PDF document, in page order.
// The pdf reader needs random access, so the stream is buffered in memory first.
func pdfText(doc io.Reader) (string, error) {
	data, err := io.ReadAll(doc)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return pdfTextFromBytes(data)
}

func pdfTextFromBytes(data []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs; keep the extractor's
	// error contract intact.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages; an all-empty result is caught by the caller.
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}
