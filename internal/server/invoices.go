package server

import (
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"invoice-sentinel/constants"
	"invoice-sentinel/internal/common"
	"invoice-sentinel/internal/repository"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// sanitizeFilename keeps only the base name and strips characters that could
// escape the storage directory.
func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	return strings.Trim(base, "._")
}

// POST /api/invoices/upload
func (s *Server) uploadInvoice(c *gin.Context) {
	file, header, err := c.Request.FormFile("invoice_pdf")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file part in the request, key must be 'invoice_pdf'"})
		return
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	apiKey := c.PostForm("api_key")
	if apiKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no API key provided, key must be 'api_key'"})
		return
	}

	if header.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no selected file"})
		return
	}
	if !constants.IsAllowedExt(filepath.Ext(header.Filename)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file type, only PDF files are accepted"})
		return
	}

	filename := sanitizeFilename(header.Filename)
	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		s.logger.Error("upload.storage_dir_failed", "dir", s.storageDir, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare storage"})
		return
	}
	dest := filepath.Join(s.storageDir, filename)
	if err := c.SaveUploadedFile(header, dest); err != nil {
		s.logger.Error("upload.save_failed", "dest", dest, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store uploaded file"})
		return
	}

	stored, err := os.Open(dest)
	if err != nil {
		s.logger.Error("upload.reopen_failed", "dest", dest, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read stored file"})
		return
	}
	defer func() { _ = stored.Close() }()

	inv, err := s.processor.Process(c.Request.Context(), stored, filename, s.credentials(apiKey))
	if err != nil {
		s.logger.Error("upload.process_failed", "filename", filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, toInvoiceResponse(inv))
}

// listFilterFromQuery validates risk_tier and sort_by_date query arguments.
func listFilterFromQuery(c *gin.Context) (repository.ListFilter, bool) {
	var filter repository.ListFilter

	if raw := c.Query("risk_tier"); raw != "" {
		tier, ok := constants.ParseRiskTier(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "risk_tier must be one of Low, Medium, High"})
			return filter, false
		}
		filter.RiskTier = tier
	}

	switch raw := c.Query("sort_by_date"); raw {
	case "":
	case string(repository.SortAsc):
		filter.SortByDate = repository.SortAsc
	case string(repository.SortDesc):
		filter.SortByDate = repository.SortDesc
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "sort_by_date must be asc or desc"})
		return filter, false
	}

	return filter, true
}

// GET /api/invoices
func (s *Server) listInvoices(c *gin.Context) {
	filter, ok := listFilterFromQuery(c)
	if !ok {
		return
	}

	invoices, err := s.repo.List(c.Request.Context(), filter)
	if err != nil {
		s.logger.Error("invoices.list_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toInvoiceResponses(invoices))
}

// GET /api/invoices/risk/:tier
func (s *Server) listInvoicesByTier(c *gin.Context) {
	tier, ok := constants.ParseRiskTier(c.Param("tier"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "risk tier must be one of Low, Medium, High"})
		return
	}

	invoices, err := s.repo.List(c.Request.Context(), repository.ListFilter{RiskTier: tier})
	if err != nil {
		s.logger.Error("invoices.list_failed", "tier", tier, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toInvoiceResponses(invoices))
}

func (s *Server) invoiceFromPath(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return 0, false
	}
	return uint(id), true
}

// GET /api/invoices/:id
func (s *Server) getInvoice(c *gin.Context) {
	id, ok := s.invoiceFromPath(c)
	if !ok {
		return
	}

	inv, err := s.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
			return
		}
		s.logger.Error("invoices.get_failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toInvoiceResponse(inv))
}

// GET /api/invoices/:id/pdf
func (s *Server) getInvoicePDF(c *gin.Context) {
	id, ok := s.invoiceFromPath(c)
	if !ok {
		return
	}

	inv, err := s.repo.GetByID(c.Request.Context(), id)
	if err != nil || inv.OriginalFilename == nil || *inv.OriginalFilename == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "PDF not found for this invoice"})
		return
	}

	path := filepath.Join(s.storageDir, filepath.Base(*inv.OriginalFilename))
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "PDF file not found on server"})
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.File(path)
}

// POST /api/invoices/:id/narrative
func (s *Server) generateNarrative(c *gin.Context) {
	id, ok := s.invoiceFromPath(c)
	if !ok {
		return
	}

	var body struct {
		APIKey string `json:"api_key"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.APIKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "API key is required to generate a narrative"})
		return
	}

	inv, err := s.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
			return
		}
		s.logger.Error("narrative.get_failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	text := s.narratives.Generate(c.Request.Context(), inv, s.credentials(body.APIKey))
	c.JSON(http.StatusOK, NarrativeResponse{Narrative: text})
}

// GET /api/invoices/export
func (s *Server) exportInvoices(c *gin.Context) {
	filter, ok := listFilterFromQuery(c)
	if !ok {
		return
	}

	xlsx, err := s.exports.ExportInvoicesXLSX(c.Request.Context(), filter)
	if err != nil {
		s.logger.Error("invoices.export_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", xlsx)
}
