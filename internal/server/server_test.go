package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"invoice-sentinel/constants"
	"invoice-sentinel/internal/entity"
	"invoice-sentinel/internal/export"
	"invoice-sentinel/internal/extract"
	"invoice-sentinel/internal/llm"
	"invoice-sentinel/internal/narrative"
	"invoice-sentinel/internal/pipeline"
	"invoice-sentinel/internal/repository"
)

type stubExtractor struct {
	fields extract.InvoiceFields
	err    error
}

func (s *stubExtractor) ExtractFields(_ context.Context, doc io.Reader, _ llm.Credentials) (extract.InvoiceFields, error) {
	_, _ = io.ReadAll(doc)
	return s.fields, s.err
}

type stubChat struct {
	response string
	err      error
}

func (s *stubChat) Complete(_ context.Context, _ llm.Credentials, _ llm.ChatRequest) (string, error) {
	return s.response, s.err
}

type testEnv struct {
	server     *Server
	repo       repository.InvoiceRepository
	extractor  *stubExtractor
	chat       *stubChat
	storageDir string
	router     *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewInvoiceRepository(db, log)
	ex := &stubExtractor{
		fields: extract.InvoiceFields{
			InvoiceID:   "INV-100",
			VendorName:  "Acme Consulting",
			InvoiceDate: time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), // Saturday
			TotalAmount: 15000,
		},
	}
	chat := &stubChat{response: "Risk review complete. [Place Payment on Hold]"}
	storageDir := t.TempDir()

	srv := New(
		repo,
		pipeline.NewProcessor(log, ex, repo),
		narrative.NewService(repo, chat, log),
		export.NewService(repo, log),
		ServerCredentials{Endpoint: "https://example.openai.azure.com", Deployment: "gpt-4o-mini"},
		storageDir,
		log,
	)
	return &testEnv{
		server:     srv,
		repo:       repo,
		extractor:  ex,
		chat:       chat,
		storageDir: storageDir,
		router:     srv.Router(),
	}
}

func (e *testEnv) seedInvoice(t *testing.T, vendor string, amount float64, tier constants.RiskTier, score float64) *entity.Invoice {
	t.Helper()
	ts := string(tier)
	inv := &entity.Invoice{
		VendorName:       vendor,
		Amount:           amount,
		InvoiceDate:      time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		ProcessingStatus: string(constants.StatusProcessed),
		RiskScore:        &score,
		RiskTier:         &ts,
	}
	stored, err := e.repo.CreateWithRiskFactors(context.Background(), inv, nil)
	require.NoError(t, err)
	return stored
}

func multipartUpload(t *testing.T, filename, apiKey string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := w.CreateFormFile("invoice_pdf", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("%PDF-1.4 test"))
		require.NoError(t, err)
	}
	if apiKey != "" {
		require.NoError(t, w.WriteField("api_key", apiKey))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadInvoice(t *testing.T) {
	env := newTestEnv(t)

	body, contentType := multipartUpload(t, "march invoice.pdf", "secret")
	req := httptest.NewRequest(http.MethodPost, "/api/invoices/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got InvoiceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Acme Consulting", got.VendorName)
	assert.Equal(t, 15000.0, got.Amount)
	assert.Equal(t, "2024-03-16", got.InvoiceDate)
	assert.Equal(t, "Processed", got.ProcessingStatus)
	require.NotNil(t, got.RiskTier)
	assert.Equal(t, "High", *got.RiskTier)
	assert.Len(t, got.RiskFactors, 3)
	require.NotNil(t, got.OriginalFilename)
	assert.Equal(t, "march_invoice.pdf", *got.OriginalFilename)

	_, err := os.Stat(filepath.Join(env.storageDir, "march_invoice.pdf"))
	assert.NoError(t, err, "uploaded file should be stored")
}

func TestUploadInvoiceValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name     string
		filename string
		apiKey   string
		want     string
	}{
		{"missing file", "", "secret", "invoice_pdf"},
		{"missing api key", "invoice.pdf", "", "api_key"},
		{"wrong extension", "invoice.txt", "secret", "PDF"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, contentType := multipartUpload(t, tc.filename, tc.apiKey)
			req := httptest.NewRequest(http.MethodPost, "/api/invoices/upload", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestListInvoices(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvoice(t, "Acme Corp", 500, constants.TierLow, 0)
	env.seedInvoice(t, "Globex Consulting", 15000, constants.TierHigh, 95)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []InvoiceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	req = httptest.NewRequest(http.MethodGet, "/api/invoices?risk_tier=High", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Globex Consulting", got[0].VendorName)
}

func TestListInvoicesRejectsBadQuery(t *testing.T) {
	env := newTestEnv(t)

	for _, url := range []string{
		"/api/invoices?risk_tier=severe",
		"/api/invoices?sort_by_date=sideways",
	} {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, url)
	}
}

func TestListInvoicesByTierPath(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvoice(t, "Acme Corp", 500, constants.TierLow, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/risk/Low", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []InvoiceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 1)

	req = httptest.NewRequest(http.MethodGet, "/api/invoices/risk/bogus", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetInvoice(t *testing.T) {
	env := newTestEnv(t)
	inv := env.seedInvoice(t, "Acme Corp", 500, constants.TierLow, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/"+itoa(inv.ID), nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got InvoiceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, inv.ID, got.InvoiceID)

	req = httptest.NewRequest(http.MethodGet, "/api/invoices/99999", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/invoices/notanumber", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetInvoicePDF(t *testing.T) {
	env := newTestEnv(t)
	inv := env.seedInvoice(t, "Acme Corp", 500, constants.TierLow, 0)

	// no filename recorded
	req := httptest.NewRequest(http.MethodGet, "/api/invoices/"+itoa(inv.ID)+"/pdf", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	filename := "stored.pdf"
	require.NoError(t, os.WriteFile(filepath.Join(env.storageDir, filename), []byte("%PDF-1.4"), 0o644))
	withFile, err := env.repo.CreateWithRiskFactors(context.Background(), &entity.Invoice{
		VendorName:       "Acme Corp",
		Amount:           500,
		InvoiceDate:      time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		ProcessingStatus: string(constants.StatusProcessed),
		OriginalFilename: &filename,
	}, nil)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/api/invoices/"+itoa(withFile.ID)+"/pdf", nil)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
}

func TestGenerateNarrative(t *testing.T) {
	env := newTestEnv(t)
	inv := env.seedInvoice(t, "Acme Corp", 500, constants.TierLow, 0)

	body := strings.NewReader(`{"api_key":"secret"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/invoices/"+itoa(inv.ID)+"/narrative", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got NarrativeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Risk review complete. [Place Payment on Hold]", got.Narrative)
}

func TestGenerateNarrativeValidation(t *testing.T) {
	env := newTestEnv(t)
	inv := env.seedInvoice(t, "Acme Corp", 500, constants.TierLow, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/invoices/"+itoa(inv.ID)+"/narrative", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/invoices/99999/narrative", strings.NewReader(`{"api_key":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardSummary(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvoice(t, "Acme Corp", 500, constants.TierLow, 10)
	env.seedInvoice(t, "Globex Consulting", 15000, constants.TierHigh, 95)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(2), got.TotalInvoices)
	assert.Equal(t, int64(1), got.InvoicesPerRiskTier["Low"])
	assert.Equal(t, int64(1), got.InvoicesPerRiskTier["High"])
	assert.Equal(t, 52.5, got.AverageRiskScore)
}

func TestVendorStatistics(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvoice(t, "Acme Corp", 100, constants.TierLow, 0)
	env.seedInvoice(t, "Acme Corp", 200, constants.TierLow, 0)
	excluded := env.seedInvoice(t, "Acme Corp", 5000, constants.TierHigh, 95)

	req := httptest.NewRequest(http.MethodGet,
		"/api/vendors/Acme%20Corp/statistics?exclude_invoice_id="+itoa(excluded.ID), nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got VendorStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Acme Corp", got.VendorName)
	assert.Equal(t, 150.0, got.AverageAmount)
	assert.Equal(t, 200.0, got.MaxAmount)
}

func TestExportInvoices(t *testing.T) {
	env := newTestEnv(t)
	env.seedInvoice(t, "Acme Corp", 500, constants.TierLow, 0)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/export", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "invoices.xlsx")

	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer func() { _ = wb.Close() }()
	rows, err := wb.GetRows("Invoices")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme Corp", rows[1][1])
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
