package repository

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"gorm.io/gorm"

	"invoice-sentinel/constants"
	"invoice-sentinel/internal/common"
	"invoice-sentinel/internal/entity"
)

// SortDirection orders list results by invoice date.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ListFilter narrows and orders List results. Zero values mean "no filter"
// and stable primary-key ordering.
type ListFilter struct {
	RiskTier   constants.RiskTier
	SortByDate SortDirection
}

// SummaryStats aggregates the whole invoice table for the dashboard.
type SummaryStats struct {
	TotalInvoices       int64
	InvoicesPerRiskTier map[string]int64
	AverageRiskScore    float64 // mean over scored invoices, 2 decimal places
}

// VendorStats is the historical amount profile of one vendor. Both values are
// zero when the vendor has no matching history.
type VendorStats struct {
	AvgAmount float64
	MaxAmount float64
}

// InvoiceRepository is the persistence boundary for invoices and their risk
// factors.
type InvoiceRepository interface {
	CreateWithRiskFactors(ctx context.Context, inv *entity.Invoice, factors []entity.RiskFactor) (*entity.Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]entity.Invoice, error)
	GetByID(ctx context.Context, id uint) (*entity.Invoice, error)
	Delete(ctx context.Context, id uint) error
	SummaryStatistics(ctx context.Context) (SummaryStats, error)
	VendorStatistics(ctx context.Context, vendorName string, excludeInvoiceID *uint) (VendorStats, error)
}

type invoiceRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewInvoiceRepository(db *gorm.DB, logger *slog.Logger) InvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceRepository{db: db, logger: logger}
}

// CreateWithRiskFactors stores an invoice and its risk factors as a single
// atomic unit. On any failure the whole unit rolls back and the original
// error is returned; a reader can never observe the invoice without its
// factors or vice versa.
func (r *invoiceRepository) CreateWithRiskFactors(ctx context.Context, inv *entity.Invoice, factors []entity.RiskFactor) (*entity.Invoice, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inv).Error; err != nil {
			return common.WrapError(err, "saving invoice")
		}
		for i := range factors {
			factors[i].InvoiceID = inv.ID
			if err := tx.Create(&factors[i]).Error; err != nil {
				return common.WrapError(err, "saving risk factor")
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("invoice create failed", "vendor", inv.VendorName, "error", err)
		return nil, err
	}

	inv.RiskFactors = factors
	r.logger.Info("invoice stored", "invoice_id", inv.ID, "vendor", inv.VendorName, "factors", len(factors))
	return inv, nil
}

// List returns every invoice exactly once. Risk factors are loaded in a
// separate query, so the one-to-many relationship cannot duplicate rows.
func (r *invoiceRepository) List(ctx context.Context, filter ListFilter) ([]entity.Invoice, error) {
	q := r.db.WithContext(ctx).Model(&entity.Invoice{}).Preload("RiskFactors")

	if filter.RiskTier != "" {
		q = q.Where("risk_tier = ?", string(filter.RiskTier))
	}
	switch filter.SortByDate {
	case SortAsc:
		q = q.Order("invoice_date ASC")
	case SortDesc:
		q = q.Order("invoice_date DESC")
	default:
		q = q.Order("id ASC")
	}

	var invoices []entity.Invoice
	if err := q.Find(&invoices).Error; err != nil {
		r.logger.Error("list invoices failed", "error", err)
		return nil, common.WrapError(err, "list invoices")
	}
	return invoices, nil
}

// GetByID returns the invoice with its factors, or common.ErrNotFound.
func (r *invoiceRepository) GetByID(ctx context.Context, id uint) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := r.db.WithContext(ctx).Preload("RiskFactors").First(&inv, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("get invoice failed", "invoice_id", id, "error", err)
		return nil, common.WrapError(err, "get invoice")
	}
	return &inv, nil
}

// Delete removes the invoice and its factors in one transaction.
func (r *invoiceRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&entity.RiskFactor{}).Error; err != nil {
			return common.WrapError(err, "deleting risk factors")
		}
		if err := tx.Delete(&entity.Invoice{}, id).Error; err != nil {
			return common.WrapError(err, "deleting invoice")
		}
		return nil
	})
}

// SummaryStatistics aggregates invoice counts per tier and the mean risk
// score across all scored invoices.
func (r *invoiceRepository) SummaryStatistics(ctx context.Context) (SummaryStats, error) {
	stats := SummaryStats{InvoicesPerRiskTier: map[string]int64{}}

	if err := r.db.WithContext(ctx).Model(&entity.Invoice{}).Count(&stats.TotalInvoices).Error; err != nil {
		return SummaryStats{}, common.WrapError(err, "count invoices")
	}

	rows, err := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Select("risk_tier, COUNT(id) AS n").
		Where("risk_tier IS NOT NULL").
		Group("risk_tier").
		Rows()
	if err != nil {
		return SummaryStats{}, common.WrapError(err, "count per tier")
	}
	defer rows.Close()
	for rows.Next() {
		var tier string
		var n int64
		if err := rows.Scan(&tier, &n); err != nil {
			return SummaryStats{}, common.WrapError(err, "scan tier count")
		}
		stats.InvoicesPerRiskTier[tier] = n
	}
	if err := rows.Err(); err != nil {
		return SummaryStats{}, common.WrapError(err, "iterate tier counts")
	}

	var avg *float64
	if err := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Select("AVG(risk_score)").
		Where("risk_score IS NOT NULL").
		Scan(&avg).Error; err != nil {
		return SummaryStats{}, common.WrapError(err, "average risk score")
	}
	if avg != nil {
		stats.AverageRiskScore = math.Round(*avg*100) / 100
	}
	return stats, nil
}

// VendorStatistics computes the mean and maximum historical amount for a
// vendor, optionally excluding one invoice so a candidate is never compared
// against itself.
func (r *invoiceRepository) VendorStatistics(ctx context.Context, vendorName string, excludeInvoiceID *uint) (VendorStats, error) {
	q := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Select("COALESCE(AVG(amount), 0), COALESCE(MAX(amount), 0)").
		Where("vendor_name = ?", vendorName)
	if excludeInvoiceID != nil {
		q = q.Where("id <> ?", *excludeInvoiceID)
	}

	var stats VendorStats
	row := q.Row()
	if err := row.Scan(&stats.AvgAmount, &stats.MaxAmount); err != nil {
		r.logger.Error("vendor statistics failed", "vendor", vendorName, "error", err)
		return VendorStats{}, common.WrapError(err, "vendor statistics")
	}
	return stats, nil
}
