package server

import (
	"math"

	"invoice-sentinel/internal/entity"
	"invoice-sentinel/internal/repository"
)

// InvoiceResponse is the wire form of one invoice.
type InvoiceResponse struct {
	InvoiceID        uint                 `json:"invoice_id"`
	VendorName       string               `json:"vendor_name"`
	Amount           float64              `json:"amount"`
	InvoiceDate      string               `json:"invoice_date"`
	ProcessingStatus string               `json:"processing_status"`
	RiskScore        *float64             `json:"risk_score"`
	RiskTier         *string              `json:"risk_tier"`
	OriginalFilename *string              `json:"original_filename"`
	RiskFactors      []RiskFactorResponse `json:"risk_factors"`
}

type RiskFactorResponse struct {
	ID           uint    `json:"id"`
	FeatureName  string  `json:"feature_name"`
	Contribution float64 `json:"contribution"`
}

type NarrativeResponse struct {
	Narrative string `json:"narrative"`
}

type SummaryResponse struct {
	TotalInvoices       int64            `json:"total_invoices"`
	InvoicesPerRiskTier map[string]int64 `json:"invoices_per_risk_tier"`
	AverageRiskScore    float64          `json:"average_risk_score"`
}

type VendorStatsResponse struct {
	VendorName    string  `json:"vendor_name"`
	AverageAmount float64 `json:"average_amount"`
	MaxAmount     float64 `json:"max_amount"`
}

func toInvoiceResponse(inv *entity.Invoice) InvoiceResponse {
	factors := make([]RiskFactorResponse, 0, len(inv.RiskFactors))
	for _, f := range inv.RiskFactors {
		factors = append(factors, RiskFactorResponse{
			ID:           f.ID,
			FeatureName:  f.FeatureName,
			Contribution: f.Contribution,
		})
	}
	return InvoiceResponse{
		InvoiceID:        inv.ID,
		VendorName:       inv.VendorName,
		Amount:           round2(inv.Amount),
		InvoiceDate:      inv.InvoiceDate.Format("2006-01-02"),
		ProcessingStatus: inv.ProcessingStatus,
		RiskScore:        inv.RiskScore,
		RiskTier:         inv.RiskTier,
		OriginalFilename: inv.OriginalFilename,
		RiskFactors:      factors,
	}
}

func toInvoiceResponses(invoices []entity.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		out = append(out, toInvoiceResponse(&invoices[i]))
	}
	return out
}

func toSummaryResponse(s repository.SummaryStats) SummaryResponse {
	return SummaryResponse{
		TotalInvoices:       s.TotalInvoices,
		InvoicesPerRiskTier: s.InvoicesPerRiskTier,
		AverageRiskScore:    s.AverageRiskScore,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
