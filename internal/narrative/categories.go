package narrative

import (
	"fmt"
	"strings"
)

// FactorCategory enumerates the risk-factor families the narrative knows how
// to contextualize. Factor names that resolve to no category contribute no
// context sentence.
type FactorCategory int

const (
	CategoryUnknown FactorCategory = iota
	CategoryAmountDeviation
	CategoryNewVendor
	CategoryDuplicateSuspicion
	CategoryUnusualTiming
)

// factorCategories maps normalized factor names to categories. The current
// scorer emits none of these names, so every entry is dormant until a scorer
// rule starts producing them; keeping the table means new rules light up
// narrative context without any change here beyond a row.
var factorCategories = map[string]FactorCategory{
	"amount_deviation":  CategoryAmountDeviation,
	"new_vendor":        CategoryNewVendor,
	"infrequent_vendor": CategoryNewVendor,
	"duplicate":         CategoryDuplicateSuspicion,
	"duplicate_invoice": CategoryDuplicateSuspicion,
	"unusual_timing":    CategoryUnusualTiming,
}

// CategorizeFactor resolves a factor name to a known category by normalized
// lookup (lowercase, spaces folded to underscores) rather than substring
// matching.
func CategorizeFactor(name string) FactorCategory {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	return factorCategories[key]
}

// contextSentence renders the qualitative clause for one category.
func contextSentence(cat FactorCategory, variancePct float64) string {
	switch cat {
	case CategoryAmountDeviation:
		return fmt.Sprintf("This invoice amount deviates significantly (%+.1f%%) from the vendor's historical average.", variancePct)
	case CategoryNewVendor:
		return "This is a new or infrequent vendor with limited transaction history."
	case CategoryDuplicateSuspicion:
		return "Potential duplicate payment detected based on amount, date, or invoice number similarity."
	case CategoryUnusualTiming:
		return "Invoice submitted outside normal business patterns for this vendor."
	}
	return ""
}

// neutralClause is emitted when no factor resolves to a known category.
const neutralClause = "No specific risk patterns identified."

// riskContext derives the qualitative context sentences for an invoice's
// factors, one per matched category, preserving factor order.
func riskContext(factorNames []string, variancePct float64) []string {
	var sentences []string
	seen := map[FactorCategory]bool{}
	for _, name := range factorNames {
		cat := CategorizeFactor(name)
		if cat == CategoryUnknown || seen[cat] {
			continue
		}
		seen[cat] = true
		sentences = append(sentences, contextSentence(cat, variancePct))
	}
	return sentences
}
