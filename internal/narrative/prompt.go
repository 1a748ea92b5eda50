package narrative

import (
	"fmt"
	"strings"

	"invoice-sentinel/constants"
	"invoice-sentinel/internal/entity"
	"invoice-sentinel/internal/repository"
)

// Persona texts, selected purely from the risk tier.
const (
	personaHigh = `You are a senior fraud analyst with 15+ years of experience in financial crime detection.
Your primary responsibility is to protect the organization from fraudulent transactions and financial losses.
Your audience is the Finance Manager who needs clear, urgent, and actionable intelligence to make immediate decisions.
Your tone should be authoritative, direct, and focused on risk mitigation.`

	personaMedium = `You are an experienced Accounts Payable specialist with expertise in payment verification and vendor management.
Your role is to identify anomalies that could indicate errors, policy violations, or potential fraud.
Your audience is the AP Manager who reviews flagged transactions before approval.
Your tone should be professional, analytical, and focused on due diligence.`

	personaLow = `You are an automated compliance system providing routine verification confirmations.
Your role is to document that standard controls have been satisfied.
Your audience is the AP team who processes approved invoices.
Your tone should be concise, affirmative, and procedural.`
)

// actionTags are the only permitted closing tags for a narrative.
var actionTags = []string{
	"[Proceed with Payment]",
	"[Verify with Originator]",
	"[Requires Managerial Approval]",
	"[Place Payment on Hold]",
}

func personaForTier(tier constants.RiskTier) string {
	switch tier {
	case constants.TierHigh:
		return personaHigh
	case constants.TierMedium:
		return personaMedium
	default:
		return personaLow
	}
}

// buildPrompt assembles the single structured prompt for narrative synthesis.
func buildPrompt(inv *entity.Invoice, stats repository.VendorStats, variancePct float64) string {
	tier := constants.TierLow
	if inv.RiskTier != nil {
		if t, ok := constants.ParseRiskTier(*inv.RiskTier); ok {
			tier = t
		}
	}
	score := 0.0
	if inv.RiskScore != nil {
		score = *inv.RiskScore
	}

	driverNames := make([]string, 0, len(inv.RiskFactors))
	for _, f := range inv.RiskFactors {
		driverNames = append(driverNames, f.FeatureName)
	}
	driversText := "None identified"
	if len(driverNames) > 0 {
		driversText = strings.Join(driverNames, ", ")
	}

	context := riskContext(driverNames, variancePct)
	if len(context) == 0 {
		context = []string{neutralClause}
	}

	var b strings.Builder
	b.WriteString(personaForTier(tier))
	b.WriteString("\n\n## OBJECTIVE\n")
	fmt.Fprintf(&b, "Generate a professional risk assessment narrative for Invoice #%d that enables informed decision-making by the Accounts Payable team.\n", inv.ID)

	fmt.Fprintf(&b, "\n## VENDOR CONTEXT: %s\n\n", inv.VendorName)
	b.WriteString("Historical Transaction Profile:\n")
	fmt.Fprintf(&b, "- Average Invoice Amount: $%.2f\n", stats.AvgAmount)
	fmt.Fprintf(&b, "- Highest Previous Invoice: $%.2f\n", stats.MaxAmount)
	b.WriteString("- Payment History: No prior issues documented\n")
	b.WriteString("- Vendor Relationship: Established vendor\n")

	b.WriteString("\n## CURRENT INVOICE ANALYSIS\n\n")
	b.WriteString("Transaction Details:\n")
	fmt.Fprintf(&b, "- Invoice ID: %d\n", inv.ID)
	fmt.Fprintf(&b, "- Vendor Name: %s\n", inv.VendorName)
	fmt.Fprintf(&b, "- Invoice Amount: $%.2f\n", inv.Amount)
	fmt.Fprintf(&b, "- Invoice Date: %s\n", inv.InvoiceDate.Format("January 2, 2006"))
	fmt.Fprintf(&b, "- Variance from Average: %+.1f%%\n", variancePct)

	b.WriteString("\nRisk Assessment:\n")
	fmt.Fprintf(&b, "- Risk Score: %g/100\n", score)
	fmt.Fprintf(&b, "- Risk Classification: %s\n", tier)
	fmt.Fprintf(&b, "- Primary Risk Indicators: %s\n", driversText)

	b.WriteString("\nRisk Factor Details:\n")
	for _, s := range context {
		b.WriteString("  - ")
		b.WriteString(s)
		b.WriteString("\n")
	}

	b.WriteString("\n## NARRATIVE GENERATION REQUIREMENTS\n")
	b.WriteString("Produce exactly four sections, in this order:\n")
	b.WriteString("1. Summary\n")
	b.WriteString("2. Comparative Analysis\n")
	b.WriteString("3. Risk-Driver Assessment\n")
	b.WriteString("4. Recommended Action\n")
	b.WriteString("Close the narrative with exactly one of the following action tags on its own line: ")
	b.WriteString(strings.Join(actionTags, ", "))
	b.WriteString(".\n")
	return b.String()
}
