package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"ticker_calendar_backend/middleware"
	"ticker_calendar_backend/services"

	"github.com/gin-gonic/gin"
)

// WatchlistController handles watchlist management requests
type WatchlistController struct {
	watchlists *services.WatchlistService
}

// NewWatchlistController creates a new watchlist controller
func NewWatchlistController(watchlists *services.WatchlistService) *WatchlistController {
	return &WatchlistController{watchlists: watchlists}
}

// parseWatchlistID reads the :id route parameter
func parseWatchlistID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid watchlist id"})
		return 0, false
	}
	return uint(id), true
}

// CreateWatchlist creates a new watchlist for the authenticated user
// POST /api/v1/watchlists
func (wc *WatchlistController) CreateWatchlist(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var request struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	watchlist, err := wc.watchlists.Create(userID, request.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create watchlist"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": watchlist})
}

// GetWatchlists returns all watchlists of the authenticated user
// GET /api/v1/watchlists
func (wc *WatchlistController) GetWatchlists(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	watchlists, err := wc.watchlists.List(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch watchlists"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": watchlists})
}

// GetWatchlist returns a single watchlist with settings and followed stocks
// GET /api/v1/watchlists/:id
func (wc *WatchlistController) GetWatchlist(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	watchlistID, ok := parseWatchlistID(c)
	if !ok {
		return
	}

	watchlist, err := wc.watchlists.Get(userID, watchlistID)
	if err != nil {
		if errors.Is(err, services.ErrWatchlistNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch watchlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": watchlist})
}

// UpdateWatchlist renames a watchlist
// PUT /api/v1/watchlists/:id
func (wc *WatchlistController) UpdateWatchlist(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	watchlistID, ok := parseWatchlistID(c)
	if !ok {
		return
	}

	var request struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := wc.watchlists.Rename(userID, watchlistID, request.Name); err != nil {
		if errors.Is(err, services.ErrWatchlistNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update watchlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Watchlist updated"})
}

// DeleteWatchlist deletes a watchlist with its settings and follows
// DELETE /api/v1/watchlists/:id
func (wc *WatchlistController) DeleteWatchlist(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	watchlistID, ok := parseWatchlistID(c)
	if !ok {
		return
	}

	if err := wc.watchlists.Delete(userID, watchlistID); err != nil {
		if errors.Is(err, services.ErrWatchlistNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete watchlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Watchlist deleted"})
}

// UpdateSettings applies a partial update to the watchlist's feed settings
// PUT /api/v1/watchlists/:id/settings
func (wc *WatchlistController) UpdateSettings(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	watchlistID, ok := parseWatchlistID(c)
	if !ok {
		return
	}

	var request struct {
		IncludeEarningsAnnouncement *bool `json:"include_earnings_announcement"`
		IncludeDividendEx           *bool `json:"include_dividend_ex"`
		IncludeDividendDeclaration  *bool `json:"include_dividend_declaration"`
		IncludeDividendRecord       *bool `json:"include_dividend_record"`
		IncludeDividendPayment      *bool `json:"include_dividend_payment"`
		IncludeStockSplit           *bool `json:"include_stock_split"`
		ReminderBeforeHours         *int  `json:"reminder_before_hours"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := services.SettingsUpdate{
		IncludeEarningsAnnouncement: request.IncludeEarningsAnnouncement,
		IncludeDividendEx:           request.IncludeDividendEx,
		IncludeDividendDeclaration:  request.IncludeDividendDeclaration,
		IncludeDividendRecord:       request.IncludeDividendRecord,
		IncludeDividendPayment:      request.IncludeDividendPayment,
		IncludeStockSplit:           request.IncludeStockSplit,
	}
	if request.ReminderBeforeHours != nil {
		if *request.ReminderBeforeHours < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reminder_before_hours must not be negative"})
			return
		}
		reminder := time.Duration(*request.ReminderBeforeHours) * time.Hour
		update.ReminderBefore = &reminder
	}

	if err := wc.watchlists.UpdateSettings(userID, watchlistID, update); err != nil {
		if errors.Is(err, services.ErrWatchlistNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Settings updated"})
}

// AddStock follows a stock on the watchlist, fetching it on first sight
// POST /api/v1/watchlists/:id/stocks
func (wc *WatchlistController) AddStock(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	watchlistID, ok := parseWatchlistID(c)
	if !ok {
		return
	}

	var request struct {
		Ticker string `json:"ticker" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stock, err := wc.watchlists.AddStock(c.Request.Context(), userID, watchlistID, request.Ticker)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrWatchlistNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist not found"})
		case errors.Is(err, services.ErrStockNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Stock not found"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to add stock"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": stock})
}

// RemoveStock unfollows a stock from the watchlist
// DELETE /api/v1/watchlists/:id/stocks/:ticker
func (wc *WatchlistController) RemoveStock(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	watchlistID, ok := parseWatchlistID(c)
	if !ok {
		return
	}

	if err := wc.watchlists.RemoveStock(userID, watchlistID, c.Param("ticker")); err != nil {
		switch {
		case errors.Is(err, services.ErrWatchlistNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist not found"})
		case errors.Is(err, services.ErrStockNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Stock is not on this watchlist"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove stock"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Stock removed"})
}

// GetStocks returns the stocks followed by the watchlist
// GET /api/v1/watchlists/:id/stocks
func (wc *WatchlistController) GetStocks(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	watchlistID, ok := parseWatchlistID(c)
	if !ok {
		return
	}

	stocks, err := wc.watchlists.ListStocks(userID, watchlistID)
	if err != nil {
		if errors.Is(err, services.ErrWatchlistNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stocks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stocks})
}

// RotateToken replaces the calendar token, invalidating the old feed URL
// POST /api/v1/watchlists/:id/rotate-token
func (wc *WatchlistController) RotateToken(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	watchlistID, ok := parseWatchlistID(c)
	if !ok {
		return
	}

	token, err := wc.watchlists.RotateToken(userID, watchlistID)
	if err != nil {
		if errors.Is(err, services.ErrWatchlistNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rotate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"calendar_token": token,
			"calendar_path":  "/calendar/" + token + ".ics",
		},
	})
}
