package extract

import (
	"strconv"
	"strings"
	"time"
)

// Accepted date layouts, tried in priority order: ISO first, then
// day-month-year, month-day-year, and a spelled-month form.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"01-02-2006",
	"Jan 2, 2006",
}

// StripCodeFences removes Markdown code-fence wrapping that models sometimes
// add despite instructions ("```json ... ```").
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// coerceAmount converts the raw amount value from the parsed JSON into a
// float64. JSON numbers decode as float64; strings are parsed after trimming.
func coerceAmount(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// parseInvoiceDate tries each accepted layout in order and returns the first
// successful parse.
func parseInvoiceDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// stringify renders a raw JSON scalar for identifiers that may come back as
// either a string or a number.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
