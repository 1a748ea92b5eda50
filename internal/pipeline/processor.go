package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"invoice-sentinel/constants"
	"invoice-sentinel/internal/entity"
	"invoice-sentinel/internal/extract"
	"invoice-sentinel/internal/llm"
	"invoice-sentinel/internal/repository"
	"invoice-sentinel/internal/risk"
)

// Processor coordinates field extraction, risk scoring, and persistence for
// one document. It holds no cross-request mutable state; one instance is safe
// for concurrent use.
type Processor struct {
	Logger    *slog.Logger
	Extractor extract.FieldExtractor
	Repo      repository.InvoiceRepository
}

func NewProcessor(logger *slog.Logger, fe extract.FieldExtractor, repo repository.InvoiceRepository) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Extractor: fe, Repo: repo}
}

// Process runs extract -> score -> persist for one document and returns the
// stored invoice. Extraction and storage failures are returned to the caller
// unmodified; both are terminal for this document.
func (p *Processor) Process(ctx context.Context, doc io.Reader, filename string, creds llm.Credentials) (*entity.Invoice, error) {
	start := time.Now()

	fields, err := p.Extractor.ExtractFields(ctx, doc, creds)
	if err != nil {
		p.Logger.Error("processor.extract.failed", "filename", filename, "err", err)
		return nil, err
	}
	p.Logger.Info("processor.extract.ok",
		"filename", filename,
		"vendor", fields.VendorName,
		"amount", fields.TotalAmount,
	)

	assessment := risk.Score(fields.TotalAmount, fields.VendorName, fields.InvoiceDate)
	p.Logger.Info("processor.score.ok",
		"filename", filename,
		"score", assessment.Score,
		"tier", assessment.Tier,
		"factors", len(assessment.Factors),
	)

	tier := string(assessment.Tier)
	inv := &entity.Invoice{
		VendorName:       fields.VendorName,
		Amount:           fields.TotalAmount,
		InvoiceDate:      fields.InvoiceDate,
		ProcessingStatus: string(constants.StatusProcessed),
		RiskScore:        &assessment.Score,
		RiskTier:         &tier,
	}
	if filename != "" {
		inv.OriginalFilename = &filename
	}

	factors := make([]entity.RiskFactor, 0, len(assessment.Factors))
	for _, f := range assessment.Factors {
		factors = append(factors, entity.RiskFactor{
			FeatureName:  f.FeatureName,
			Contribution: f.Contribution,
		})
	}

	stored, err := p.Repo.CreateWithRiskFactors(ctx, inv, factors)
	if err != nil {
		p.Logger.Error("processor.store.failed", "filename", filename, "err", err)
		return nil, err
	}

	p.Logger.Info("processor.ok",
		"filename", filename,
		"invoice_id", stored.ID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return stored, nil
}
