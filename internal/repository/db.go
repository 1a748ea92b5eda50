package repository

import (
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"invoice-sentinel/internal/common"
	"invoice-sentinel/internal/entity"
)

// Open connects to Postgres, configures the connection pool, and migrates the
// invoice schema. The returned handle is passed explicitly to each repository;
// nothing in this package keeps process-wide state.
func Open(cfg common.DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database")

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, common.WrapError(err, "open database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, common.WrapError(err, "access sql db")
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("successfully connected to database")
	return db, nil
}

// Migrate creates or updates the invoice tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entity.Invoice{}, &entity.RiskFactor{}); err != nil {
		return common.WrapError(err, "migrate schema")
	}
	return nil
}
