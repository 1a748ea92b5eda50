package entity

import (
	"time"
)

// Invoice is one processed invoice document. RiskScore and RiskTier are set
// together in the same write or not at all; a scored invoice never has one
// without the other.
type Invoice struct {
	ID               uint      `gorm:"primaryKey"`
	VendorName       string    `gorm:"size:255;not null"`
	Amount           float64   `gorm:"not null"`
	InvoiceDate      time.Time `gorm:"not null"`
	ProcessingStatus string    `gorm:"size:50;not null;default:Pending"`
	RiskScore        *float64
	RiskTier         *string `gorm:"size:50"`
	OriginalFilename *string `gorm:"size:255"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Exclusive ownership: deleting the invoice deletes its factors.
	RiskFactors []RiskFactor `gorm:"constraint:OnDelete:CASCADE"`
}

// RiskFactor is one contributing reason for an invoice's score. Rows are
// created in the same transaction as the owning invoice's score and never
// mutated afterward.
type RiskFactor struct {
	ID           uint    `gorm:"primaryKey"`
	FeatureName  string  `gorm:"size:255;not null"`
	Contribution float64 `gorm:"not null"`
	InvoiceID    uint    `gorm:"not null;index"`
}
