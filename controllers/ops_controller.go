package controllers

import (
	"net/http"
	"strconv"

	"ticker_calendar_backend/services"

	"github.com/gin-gonic/gin"
)

// OpsController exposes operational introspection for authenticated users
type OpsController struct{}

// NewOpsController creates a new ops controller
func NewOpsController() *OpsController {
	return &OpsController{}
}

// GetRecentFetches returns the most recent provider calls from the fetch
// audit log, newest first. When the log is not configured the response is an
// empty list with configured=false rather than an error.
// GET /api/v1/ops/recent-fetches?limit=50
func (oc *OpsController) GetRecentFetches(c *gin.Context) {
	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = parsed
	}

	if services.GlobalFetchLog == nil || !services.GlobalFetchLog.IsConfigured() {
		c.JSON(http.StatusOK, gin.H{"data": []gin.H{}, "configured": false})
		return
	}

	entries, err := services.GlobalFetchLog.RecentFetches(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load fetch log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries, "configured": true})
}
