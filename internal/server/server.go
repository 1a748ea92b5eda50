package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"invoice-sentinel/internal/common"
	"invoice-sentinel/internal/export"
	"invoice-sentinel/internal/llm"
	"invoice-sentinel/internal/narrative"
	"invoice-sentinel/internal/pipeline"
	"invoice-sentinel/internal/repository"
)

// Server holds the REST surface and its dependencies.
type Server struct {
	repo       repository.InvoiceRepository
	processor  *pipeline.Processor
	narratives *narrative.Service
	exports    *export.Service
	creds      ServerCredentials
	storageDir string
	logger     *slog.Logger
}

// ServerCredentials are the fixed parts of the model connection; the API key
// arrives with each request and is never stored.
type ServerCredentials struct {
	Endpoint   string
	Deployment string
}

func New(
	repo repository.InvoiceRepository,
	processor *pipeline.Processor,
	narratives *narrative.Service,
	exports *export.Service,
	creds ServerCredentials,
	storageDir string,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		repo:       repo,
		processor:  processor,
		narratives: narratives,
		exports:    exports,
		creds:      creds,
		storageDir: storageDir,
		logger:     logger,
	}
}

// Router builds the gin engine with all API routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	api := r.Group("/api")
	{
		api.POST("/invoices/upload", s.uploadInvoice)
		api.GET("/invoices", s.listInvoices)
		api.GET("/invoices/export", s.exportInvoices)
		api.GET("/invoices/risk/:tier", s.listInvoicesByTier)
		api.GET("/invoices/:id", s.getInvoice)
		api.GET("/invoices/:id/pdf", s.getInvoicePDF)
		api.POST("/invoices/:id/narrative", s.generateNarrative)
		api.GET("/dashboard/summary", s.dashboardSummary)
		api.GET("/vendors/:vendor/statistics", s.vendorStatistics)
	}
	return r
}

// requestLog assigns each request an id, threads it through the request
// context for downstream logs, and emits one line per completed request.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), reqID))
		c.Header("X-Request-ID", reqID)

		start := time.Now()
		c.Next()

		s.logger.Info("http.request",
			"req_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) credentials(apiKey string) llm.Credentials {
	return llm.Credentials{
		Endpoint:   s.creds.Endpoint,
		APIKey:     apiKey,
		Deployment: s.creds.Deployment,
	}
}
