package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ticker_calendar_backend/models"
	"ticker_calendar_backend/services"
)

func newCalendarRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.MigrateStockModels(db))
	require.NoError(t, models.MigrateUserModels(db))
	require.NoError(t, models.MigrateWatchlistModels(db))

	user := models.User{Email: "cal@example.com"}
	require.NoError(t, user.SetPassword("s3cret-pass"))
	require.NoError(t, db.Create(&user).Error)

	token, err := services.GenerateCalendarToken()
	require.NoError(t, err)
	watchlist := models.Watchlist{
		UserID:        user.ID,
		Name:          "Feed Test",
		CalendarToken: token,
		Settings:      models.DefaultWatchlistSettings(),
	}
	require.NoError(t, db.Create(&watchlist).Error)

	refreshed := time.Date(2025, 11, 1, 23, 5, 0, 0, time.UTC)
	store := services.NewStockStore(db)
	require.NoError(t, store.UpsertStock(&models.Stock{Ticker: "AAPL", Name: "Apple Inc", LastRefreshedAt: refreshed}))
	require.NoError(t, db.Create(&models.Follow{WatchlistID: watchlist.ID, StockTicker: "AAPL"}).Error)
	require.NoError(t, store.UpsertEvents([]models.StockEvent{{
		StockTicker:     "AAPL",
		Type:            models.EventEarningsAnnouncement,
		Date:            time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC),
		LastRefreshedAt: refreshed,
	}}))

	calendarService := services.NewCalendarService(db, store, services.NewTokenGateway(db))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/calendar/:token", NewCalendarController(calendarService).GetCalendar)
	return router, token
}

func TestGetCalendarServesICS(t *testing.T) {
	router, token := newCalendarRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/calendar/"+token+".ics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), token+".ics")
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-cache")
	assert.Contains(t, w.Body.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, w.Body.String(), "UID:AAPL-EARNINGS_ANNOUNCEMENT-20251108@tickercaltracker.com")
}

func TestGetCalendarWithoutExtension(t *testing.T) {
	router, token := newCalendarRouter(t)

	// the bare token works too, for clients that strip the extension
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/calendar/"+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetCalendarUnknownToken(t *testing.T) {
	router, _ := newCalendarRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/calendar/not-a-real-token.ics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetCalendarIsByteStable(t *testing.T) {
	router, token := newCalendarRouter(t)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/calendar/"+token+".ics", nil))
	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/calendar/"+token+".ics", nil))

	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}
