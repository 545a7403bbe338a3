package controllers

import (
	"errors"
	"net/http"

	"ticker_calendar_backend/services"

	"github.com/gin-gonic/gin"
)

// StockController handles stock lookup requests
type StockController struct {
	stocks *services.StockService
}

// NewStockController creates a new stock controller
func NewStockController(stocks *services.StockService) *StockController {
	return &StockController{stocks: stocks}
}

// GetStock returns stock metadata, fetching from providers on a cache miss
// GET /api/v1/stocks/:ticker
func (sc *StockController) GetStock(c *gin.Context) {
	ticker := c.Param("ticker")

	stock, err := sc.stocks.GetOrFetchStock(c.Request.Context(), ticker)
	if err != nil {
		if errors.Is(err, services.ErrStockNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Stock not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch stock data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stock})
}

// SearchStock resolves a company name to a ticker via the providers
// GET /api/v1/stocks/search?q=Apple
func (sc *StockController) SearchStock(c *gin.Context) {
	name := c.Query("q")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}

	stock, err := sc.stocks.SearchStockByName(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, services.ErrStockNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No stock matched the given name"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to search stock"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stock})
}

// GetStockEvents returns the cached calendar events for a stock
// GET /api/v1/stocks/:ticker/events
func (sc *StockController) GetStockEvents(c *gin.Context) {
	ticker := c.Param("ticker")

	// Ensure the stock is cached (and fresh enough) before reading events
	stock, err := sc.stocks.GetOrFetchStock(c.Request.Context(), ticker)
	if err != nil {
		if errors.Is(err, services.ErrStockNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Stock not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch stock data"})
		return
	}

	events, err := sc.stocks.GetEvents(stock.Ticker)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  events,
		"stock": stock,
	})
}
