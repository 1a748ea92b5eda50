package risk

import (
	"strings"
	"time"

	"invoice-sentinel/constants"
)

// Factor is one named, weighted reason contributing to a risk score.
type Factor struct {
	FeatureName  string
	Contribution float64
}

// Assessment is the scorer's full output: total score, tier, and the ordered
// list of contributing factors (only rules that fired).
type Assessment struct {
	Score   float64
	Tier    constants.RiskTier
	Factors []Factor
}

// Factor labels. These exact strings are persisted and matched against the
// narrative category table; treat them as stable identifiers.
const (
	FactorHighAmount = "High Invoice Amount"
	FactorVendorType = "Vendor Type"
	FactorWeekend    = "Weekend Transaction"
)

// Rule thresholds and weights.
const (
	highAmountThreshold = 10000.0
	highAmountPoints    = 45.0
	vendorTypePoints    = 30.0
	weekendPoints       = 20.0
)

// Score assigns a deterministic risk score to an invoice. It is a pure
// function over its inputs: no I/O, no external state, identical input always
// yields identical output. Rules are evaluated in fixed order and are
// independently additive.
func Score(amount float64, vendorName string, invoiceDate time.Time) Assessment {
	var a Assessment

	if amount > highAmountThreshold {
		a.Score += highAmountPoints
		a.Factors = append(a.Factors, Factor{FeatureName: FactorHighAmount, Contribution: highAmountPoints})
	}

	vendor := strings.ToLower(vendorName)
	if strings.Contains(vendor, "consulting") || strings.Contains(vendor, "services") {
		a.Score += vendorTypePoints
		a.Factors = append(a.Factors, Factor{FeatureName: FactorVendorType, Contribution: vendorTypePoints})
	}

	if wd := invoiceDate.Weekday(); wd == time.Saturday || wd == time.Sunday {
		a.Score += weekendPoints
		a.Factors = append(a.Factors, Factor{FeatureName: FactorWeekend, Contribution: weekendPoints})
	}

	a.Tier = TierForScore(a.Score)
	return a
}

// TierForScore maps a score onto exactly one tier: <=30 Low, 31-60 Medium,
// >60 High.
func TierForScore(score float64) constants.RiskTier {
	switch {
	case score <= 30:
		return constants.TierLow
	case score <= 60:
		return constants.TierMedium
	default:
		return constants.TierHigh
	}
}
