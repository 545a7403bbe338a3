package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ticker_calendar_backend/models"
)

func newWatchlistFixture(t *testing.T) (*gorm.DB, *WatchlistService, *fakeProvider, uint) {
	t.Helper()

	db := newTestDB(t)
	provider := appleProvider()
	stocks := newFakeStockService(db, provider, 24*time.Hour)
	service := NewWatchlistService(db, stocks, NewTokenGateway(db))

	user := models.User{Email: "owner@example.com"}
	require.NoError(t, user.SetPassword("s3cret-pass"))
	require.NoError(t, db.Create(&user).Error)

	return db, service, provider, user.ID
}

func TestCreateWatchlistDefaults(t *testing.T) {
	_, service, _, userID := newWatchlistFixture(t)

	watchlist, err := service.Create(userID, "My Stocks")
	require.NoError(t, err)
	assert.NotEmpty(t, watchlist.CalendarToken)

	loaded, err := service.Get(userID, watchlist.ID)
	require.NoError(t, err)
	assert.Equal(t, "My Stocks", loaded.Name)
	assert.True(t, loaded.Settings.IncludeEarningsAnnouncement)
	assert.True(t, loaded.Settings.IncludeStockSplit)
	assert.Equal(t, models.DefaultReminderBefore, loaded.Settings.ReminderBefore)
}

func TestCreateWatchlistRequiresName(t *testing.T) {
	_, service, _, userID := newWatchlistFixture(t)
	_, err := service.Create(userID, "")
	assert.Error(t, err)
}

func TestWatchlistOwnershipScoping(t *testing.T) {
	_, service, _, userID := newWatchlistFixture(t)

	watchlist, err := service.Create(userID, "Mine")
	require.NoError(t, err)

	const strangerID = 777
	_, err = service.Get(strangerID, watchlist.ID)
	assert.ErrorIs(t, err, ErrWatchlistNotFound)
	err = service.Rename(strangerID, watchlist.ID, "Stolen")
	assert.ErrorIs(t, err, ErrWatchlistNotFound)
	_, err = service.RotateToken(strangerID, watchlist.ID)
	assert.ErrorIs(t, err, ErrWatchlistNotFound)
}

func TestAddStockIdempotent(t *testing.T) {
	db, service, provider, userID := newWatchlistFixture(t)

	watchlist, err := service.Create(userID, "Tech")
	require.NoError(t, err)

	stock, err := service.AddStock(context.Background(), userID, watchlist.ID, "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", stock.Ticker)
	assert.Equal(t, 1, provider.lookupCalls)

	// second add is a no-op: cache hit, no duplicate follow
	_, err = service.AddStock(context.Background(), userID, watchlist.ID, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.lookupCalls)

	var followCount int64
	require.NoError(t, db.Model(&models.Follow{}).Where("watchlist_id = ?", watchlist.ID).Count(&followCount).Error)
	assert.EqualValues(t, 1, followCount)

	var stockCount int64
	require.NoError(t, db.Model(&models.Stock{}).Count(&stockCount).Error)
	assert.EqualValues(t, 1, stockCount)
}

func TestAddStockUnknownTicker(t *testing.T) {
	_, service, _, userID := newWatchlistFixture(t)

	watchlist, err := service.Create(userID, "Tech")
	require.NoError(t, err)

	_, err = service.AddStock(context.Background(), userID, watchlist.ID, "NOPE")
	assert.ErrorIs(t, err, ErrStockNotFound)
}

func TestRemoveStock(t *testing.T) {
	_, service, _, userID := newWatchlistFixture(t)

	watchlist, err := service.Create(userID, "Tech")
	require.NoError(t, err)
	_, err = service.AddStock(context.Background(), userID, watchlist.ID, "AAPL")
	require.NoError(t, err)

	require.NoError(t, service.RemoveStock(userID, watchlist.ID, "aapl"))

	stocks, err := service.ListStocks(userID, watchlist.ID)
	require.NoError(t, err)
	assert.Empty(t, stocks)

	// removing again reports the stock as not followed
	err = service.RemoveStock(userID, watchlist.ID, "AAPL")
	assert.ErrorIs(t, err, ErrStockNotFound)
}

func TestRemoveStockKeepsCache(t *testing.T) {
	db, service, _, userID := newWatchlistFixture(t)

	watchlist, err := service.Create(userID, "Tech")
	require.NoError(t, err)
	_, err = service.AddStock(context.Background(), userID, watchlist.ID, "AAPL")
	require.NoError(t, err)
	require.NoError(t, service.RemoveStock(userID, watchlist.ID, "AAPL"))

	var stockCount, eventCount int64
	require.NoError(t, db.Model(&models.Stock{}).Count(&stockCount).Error)
	require.NoError(t, db.Model(&models.StockEvent{}).Count(&eventCount).Error)
	assert.EqualValues(t, 1, stockCount, "cached stock survives unfollow")
	assert.EqualValues(t, 2, eventCount, "cached events survive unfollow")
}

func TestUpdateSettingsPartial(t *testing.T) {
	_, service, _, userID := newWatchlistFixture(t)

	watchlist, err := service.Create(userID, "Tech")
	require.NoError(t, err)

	off := false
	reminder := 48 * time.Hour
	require.NoError(t, service.UpdateSettings(userID, watchlist.ID, SettingsUpdate{
		IncludeStockSplit: &off,
		ReminderBefore:    &reminder,
	}))

	loaded, err := service.Get(userID, watchlist.ID)
	require.NoError(t, err)
	assert.False(t, loaded.Settings.IncludeStockSplit)
	assert.Equal(t, reminder, loaded.Settings.ReminderBefore)
	// untouched flags keep their value
	assert.True(t, loaded.Settings.IncludeEarningsAnnouncement)
	assert.True(t, loaded.Settings.IncludeDividendEx)
}

func TestDeleteWatchlist(t *testing.T) {
	db, service, _, userID := newWatchlistFixture(t)

	watchlist, err := service.Create(userID, "Tech")
	require.NoError(t, err)
	_, err = service.AddStock(context.Background(), userID, watchlist.ID, "AAPL")
	require.NoError(t, err)

	require.NoError(t, service.Delete(userID, watchlist.ID))

	_, err = service.Get(userID, watchlist.ID)
	assert.ErrorIs(t, err, ErrWatchlistNotFound)

	var settingsCount, followCount, stockCount int64
	require.NoError(t, db.Model(&models.WatchlistSettings{}).Where("watchlist_id = ?", watchlist.ID).Count(&settingsCount).Error)
	require.NoError(t, db.Model(&models.Follow{}).Where("watchlist_id = ?", watchlist.ID).Count(&followCount).Error)
	require.NoError(t, db.Model(&models.Stock{}).Count(&stockCount).Error)
	assert.Zero(t, settingsCount)
	assert.Zero(t, followCount)
	assert.EqualValues(t, 1, stockCount, "cached stock outlives the watchlist")
}

func TestRotateTokenInvalidatesFeedURL(t *testing.T) {
	db, service, _, userID := newWatchlistFixture(t)

	watchlist, err := service.Create(userID, "Tech")
	require.NoError(t, err)

	newToken, err := service.RotateToken(userID, watchlist.ID)
	require.NoError(t, err)
	assert.NotEqual(t, watchlist.CalendarToken, newToken)

	gateway := NewTokenGateway(db)
	_, err = gateway.Resolve(watchlist.CalendarToken)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}
