package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"invoice-sentinel/internal/entity"
	"invoice-sentinel/internal/llm"
	"invoice-sentinel/internal/repository"
)

// Sampling parameters for narrative synthesis: low-but-nonzero temperature
// with a bounded response length.
const (
	narrativeTemperature = 0.3
	narrativeMaxTokens   = 500
)

// Service composes a context-rich prompt from a stored invoice and its
// vendor's history, invokes the model, and sanitizes the result. Narrative
// generation is advisory, not load-bearing: Generate never returns an error,
// only a degraded fallback string.
type Service struct {
	repo   repository.InvoiceRepository
	chat   llm.ChatClient
	logger *slog.Logger
}

func NewService(repo repository.InvoiceRepository, chat llm.ChatClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, chat: chat, logger: logger}
}

// Generate returns the risk narrative for an already-scored invoice, or the
// fallback string on any internal failure (vendor lookup, model call, empty
// response). It never raises to the caller.
func (s *Service) Generate(ctx context.Context, inv *entity.Invoice, creds llm.Credentials) string {
	start := time.Now()

	stats, err := s.repo.VendorStatistics(ctx, inv.VendorName, &inv.ID)
	if err != nil {
		s.logger.Error("narrative.vendor_stats_error", "invoice_id", inv.ID, "error", err)
		return s.fallback(inv)
	}

	variancePct := 0.0
	if stats.AvgAmount > 0 {
		variancePct = (inv.Amount - stats.AvgAmount) / stats.AvgAmount * 100
	}

	prompt := buildPrompt(inv, stats, variancePct)
	s.logger.Info("narrative.start", "invoice_id", inv.ID, "prompt_len", len(prompt))

	content, err := s.chat.Complete(ctx, creds, llm.ChatRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: narrativeTemperature,
		MaxTokens:   narrativeMaxTokens,
	})
	if err != nil {
		s.logger.Error("narrative.llm_error", "invoice_id", inv.ID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return s.fallback(inv)
	}

	narrative := CleanText(content)
	if narrative == "" {
		s.logger.Error("narrative.empty_response", "invoice_id", inv.ID,
			"elapsed_ms", time.Since(start).Milliseconds())
		return s.fallback(inv)
	}

	s.logger.Info("narrative.ok", "invoice_id", inv.ID, "narrative_len", len(narrative),
		"elapsed_ms", time.Since(start).Milliseconds())
	return narrative
}

func (s *Service) fallback(inv *entity.Invoice) string {
	return fmt.Sprintf("Narrative generation failed due to an internal error. Please review invoice %d manually.", inv.ID)
}
