package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"invoice-sentinel/internal/entity"
	"invoice-sentinel/internal/repository"
)

// Service is a tiny façade over the invoice repository that produces XLSX
// bytes for exports.
type Service struct {
	repo   repository.InvoiceRepository
	logger *slog.Logger
}

func NewService(repo repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportInvoicesXLSX returns an XLSX workbook (as bytes) of all invoices
// matching the filter, one row per invoice.
func (s *Service) ExportInvoicesXLSX(ctx context.Context, filter repository.ListFilter) ([]byte, error) {
	start := time.Now()

	invoices, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Invoices"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"Invoice ID",
		"Vendor Name",
		"Amount",
		"Invoice Date",
		"Status",
		"Risk Score",
		"Risk Tier",
		"Risk Factors",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for i := range invoices {
		inv := &invoices[i]
		values := []any{
			inv.ID,
			inv.VendorName,
			fmt.Sprintf("%.2f", inv.Amount),
			inv.InvoiceDate.Format("2006-01-02"),
			inv.ProcessingStatus,
			"",
			"",
			factorSummary(inv.RiskFactors),
		}
		if inv.RiskScore != nil {
			values[5] = *inv.RiskScore
		}
		if inv.RiskTier != nil {
			values[6] = *inv.RiskTier
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.ok", "rows", len(invoices), "bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func factorSummary(factors []entity.RiskFactor) string {
	if len(factors) == 0 {
		return ""
	}
	parts := make([]string, 0, len(factors))
	for _, f := range factors {
		parts = append(parts, fmt.Sprintf("%s (+%g)", f.FeatureName, f.Contribution))
	}
	return strings.Join(parts, "; ")
}
