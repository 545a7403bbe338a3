package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ticker_calendar_backend/models"
	"ticker_calendar_backend/services/providers"
)

// newTestDB opens an in-memory SQLite database with all models migrated.
// A single connection keeps every query on the same in-memory instance.
func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

// fakeProvider is a scripted Provider for service-level tests.
type fakeProvider struct {
	name        string
	stocks      map[string]providers.StockInfo
	events      map[string][]providers.EventInfo
	lookupErr   error
	eventsErr   error
	lookupCalls int
	eventCalls  int
}

func (p *fakeProvider) Name() string {
	return p.name
}

func (p *fakeProvider) LookupStock(ctx context.Context, ticker string) (*providers.StockInfo, error) {
	p.lookupCalls++
	if p.lookupErr != nil {
		return nil, p.lookupErr
	}
	info, ok := p.stocks[ticker]
	if !ok {
		return nil, providers.ErrTickerUnknown
	}
	return &info, nil
}

func (p *fakeProvider) SearchStock(ctx context.Context, name string) (*providers.StockInfo, error) {
	if p.lookupErr != nil {
		return nil, p.lookupErr
	}
	for _, info := range p.stocks {
		if info.Name == name {
			return &info, nil
		}
	}
	return nil, providers.ErrTickerUnknown
}

func (p *fakeProvider) LookupEvents(ctx context.Context, ticker string, eventTypes []string) ([]providers.EventInfo, error) {
	p.eventCalls++
	if p.eventsErr != nil {
		return nil, p.eventsErr
	}
	return p.events[ticker], nil
}

// newFakeStockService wires a stock service over a single fake provider.
func newFakeStockService(db *gorm.DB, provider *fakeProvider, freshFor time.Duration) *StockService {
	facade := providers.NewFacadeWithOrder(
		[]providers.Provider{provider},
		[]providers.Provider{provider},
	)
	return NewStockService(NewStockStore(db), facade, freshFor)
}

func appleProvider() *fakeProvider {
	return &fakeProvider{
		name: "fake",
		stocks: map[string]providers.StockInfo{
			"AAPL": {Ticker: "AAPL", Name: "Apple Inc"},
		},
		events: map[string][]providers.EventInfo{
			"AAPL": {
				{
					Ticker: "AAPL",
					Type:   models.EventEarningsAnnouncement,
					Date:   time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC),
					Source: "fake",
				},
				{
					Ticker: "AAPL",
					Type:   models.EventDividendPayment,
					Date:   time.Date(2025, 11, 14, 0, 0, 0, 0, time.UTC),
					Amount: decimal.RequireFromString("0.25"),
					Source: "fake",
				},
			},
		},
	}
}
