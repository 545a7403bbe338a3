package routes

import (
	"ticker_calendar_backend/config"
	"ticker_calendar_backend/controllers"
	"ticker_calendar_backend/middleware"
	"ticker_calendar_backend/services"
	"ticker_calendar_backend/services/providers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes sets up all API routes and returns the shared stock service
// so the caller can hand it to the refresh scheduler.
func SetupRoutes(router *gin.Engine, db *gorm.DB) *services.StockService {
	// Provider facade with the optional fetch audit log
	facade := providers.NewFacade(
		providers.NewAlphaVantage(config.AppConfig.AlphaVantageAPIKey),
		providers.NewFinnhub(config.AppConfig.FinnhubAPIKey),
	)
	if services.GlobalFetchLog != nil && services.GlobalFetchLog.IsConfigured() {
		facade.SetFetchLogger(services.GlobalFetchLog)
	}

	// Shared services
	store := services.NewStockStore(db)
	stockService := services.NewStockService(store, facade, config.AppConfig.StockFreshFor)
	tokenGateway := services.NewTokenGateway(db)
	watchlistService := services.NewWatchlistService(db, stockService, tokenGateway)
	calendarService := services.NewCalendarService(db, store, tokenGateway)

	// Controllers
	authController := controllers.NewAuthController(db)
	stockController := controllers.NewStockController(stockService)
	watchlistController := controllers.NewWatchlistController(watchlistService)
	calendarController := controllers.NewCalendarController(calendarService)
	opsController := controllers.NewOpsController()

	// Public calendar feed, token is the only credential
	router.GET("/calendar/:token", calendarController.GetCalendar)

	// API v1 group
	api := router.Group("/api/v1")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/register", authController.Register)
			auth.POST("/login", middleware.LoginRateLimitMiddleware(), authController.Login)
			auth.GET("/me", middleware.JWTAuthMiddleware(), authController.Me)
		}

		// Stock routes
		stocks := api.Group("/stocks", middleware.JWTAuthMiddleware())
		{
			stocks.GET("/search", stockController.SearchStock)
			stocks.GET("/:ticker", stockController.GetStock)
			stocks.GET("/:ticker/events", stockController.GetStockEvents)
		}

		// Watchlist routes
		watchlists := api.Group("/watchlists", middleware.JWTAuthMiddleware())
		{
			watchlists.POST("", watchlistController.CreateWatchlist)
			watchlists.GET("", watchlistController.GetWatchlists)
			watchlists.GET("/:id", watchlistController.GetWatchlist)
			watchlists.PUT("/:id", watchlistController.UpdateWatchlist)
			watchlists.DELETE("/:id", watchlistController.DeleteWatchlist)
			watchlists.PUT("/:id/settings", watchlistController.UpdateSettings)
			watchlists.GET("/:id/stocks", watchlistController.GetStocks)
			watchlists.POST("/:id/stocks", watchlistController.AddStock)
			watchlists.DELETE("/:id/stocks/:ticker", watchlistController.RemoveStock)
			watchlists.POST("/:id/rotate-token", watchlistController.RotateToken)
		}

		// Operational introspection
		ops := api.Group("/ops", middleware.JWTAuthMiddleware())
		{
			ops.GET("/recent-fetches", opsController.GetRecentFetches)
		}
	}

	return stockService
}
