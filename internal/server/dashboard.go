package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GET /api/dashboard/summary
func (s *Server) dashboardSummary(c *gin.Context) {
	stats, err := s.repo.SummaryStatistics(c.Request.Context())
	if err != nil {
		s.logger.Error("dashboard.summary_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toSummaryResponse(stats))
}

// GET /api/vendors/:vendor/statistics
func (s *Server) vendorStatistics(c *gin.Context) {
	vendor := c.Param("vendor")
	if vendor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vendor name is required"})
		return
	}

	var exclude *uint
	if raw := c.Query("exclude_invoice_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "exclude_invoice_id must be an integer"})
			return
		}
		u := uint(id)
		exclude = &u
	}

	stats, err := s.repo.VendorStatistics(c.Request.Context(), vendor, exclude)
	if err != nil {
		s.logger.Error("vendors.statistics_failed", "vendor", vendor, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, VendorStatsResponse{
		VendorName:    vendor,
		AverageAmount: round2(stats.AvgAmount),
		MaxAmount:     round2(stats.MaxAmount),
	})
}
