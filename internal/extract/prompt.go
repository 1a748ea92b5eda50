package extract

import "strings"

// Required keys in the model's JSON response, in the order we report them
// back when absent.
var requiredFields = []string{"invoice_id", "vendor_name", "invoice_date", "total_amount"}

// BuildExtractionPrompt composes the deterministic instruction prompt that asks
// the model for exactly the four invoice fields as a bare JSON object.
func BuildExtractionPrompt(rawText string) string {
	var b strings.Builder
	b.WriteString("You are an expert data extraction AI. Your task is to read the raw text from an invoice ")
	b.WriteString("and extract the following four fields: 'invoice_id', 'vendor_name', 'invoice_date', and 'total_amount'.\n\n")
	b.WriteString("Follow these rules precisely:\n")
	b.WriteString("1. The 'invoice_date' must be in YYYY-MM-DD format.\n")
	b.WriteString("2. The 'total_amount' must be a single number with a decimal point (e.g., 1234.56). ")
	b.WriteString("Do not include currency symbols, commas, or any other text.\n")
	b.WriteString("3. The 'vendor_name' should be the name of the company sending the invoice.\n")
	b.WriteString("4. Your entire response must be ONLY the JSON object, with no other text, explanations, or markdown formatting.\n")
	b.WriteString("\n--- RAW INVOICE TEXT ---\n")
	b.WriteString(rawText)
	b.WriteString("\n--- END RAW TEXT ---\n")
	b.WriteString("\nNow, provide the JSON object.")
	return b.String()
}
