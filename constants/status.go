package constants

// ProcessingStatus is the canonical status for rows in invoices.
type ProcessingStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending   ProcessingStatus = "Pending"   // ingested, not yet scored
	StatusProcessed ProcessingStatus = "Processed" // fields extracted and risk assessed
	StatusFailed    ProcessingStatus = "Failed"    // terminal failure
)

// RiskTier classifies a risk score. Values are case-sensitive and are
// persisted and serialized exactly as written here.
type RiskTier string

const (
	TierLow    RiskTier = "Low"
	TierMedium RiskTier = "Medium"
	TierHigh   RiskTier = "High"
)

// ParseRiskTier maps a string onto a known tier.
func ParseRiskTier(s string) (RiskTier, bool) {
	switch RiskTier(s) {
	case TierLow, TierMedium, TierHigh:
		return RiskTier(s), true
	}
	return "", false
}
