package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"invoice-sentinel/internal/llm"
	"invoice-sentinel/internal/pipeline"
)

// Handler processes files dropped into the inbox and files them away
// under the processed or failed directory depending on the outcome.
type Handler struct {
	Processor    *pipeline.Processor
	Creds        llm.Credentials
	ProcessedDir string
	FailedDir    string
	Logger       *slog.Logger
}

// Handle runs the processing pipeline for a single inbox file. The source
// file is always moved out of the inbox, so a crash-free run never
// reprocesses the same document.
func (h *Handler) Handle(ctx context.Context, path string) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Error("inbox.open_failed", "path", path, "error", err)
		return err
	}

	inv, procErr := h.Processor.Process(ctx, f, filepath.Base(path), h.Creds)
	if cerr := f.Close(); cerr != nil {
		logger.Warn("inbox.close_failed", "path", path, "error", cerr)
	}

	if procErr != nil {
		logger.Error("inbox.process_failed", "path", path, "error", procErr)
		dest, mvErr := MoveFile(path, h.FailedDir, "error_")
		if mvErr != nil {
			logger.Error("inbox.quarantine_failed", "path", path, "error", mvErr)
			return mvErr
		}
		logger.Info("inbox.quarantined", "path", path, "dest", dest)
		return procErr
	}

	dest, mvErr := MoveFile(path, h.ProcessedDir, "")
	if mvErr != nil {
		logger.Error("inbox.archive_failed", "path", path, "error", mvErr)
		return mvErr
	}
	logger.Info("inbox.archived", "path", path, "dest", dest, "invoice_id", inv.ID)
	return nil
}

// MoveFile moves path into destDir, prepending prefix to the base name.
// Name collisions are resolved with a numeric suffix before the extension.
func MoveFile(path, destDir, prefix string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", destDir, err)
	}

	base := prefix + filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	dest := filepath.Join(destDir, base)
	for n := 1; ; n++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		dest = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}

	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("move %s to %s: %w", path, dest, err)
	}
	return dest, nil
}
