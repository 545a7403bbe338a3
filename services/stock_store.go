package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ticker_calendar_backend/models"
)

// StockStore is the durable event cache. Stocks are keyed by ticker and
// events by their (ticker, type, date) identity triple; all writes are
// single-statement upserts, which serializes concurrent writers on the same
// key (last writer wins — providers are the source of truth and staleness is
// bounded by the refresh scheduler).
type StockStore struct {
	db *gorm.DB
}

// NewStockStore creates a new stock store
func NewStockStore(db *gorm.DB) *StockStore {
	return &StockStore{db: db}
}

// GetStock returns the cached stock for a ticker, or gorm.ErrRecordNotFound
func (s *StockStore) GetStock(ticker string) (*models.Stock, error) {
	var stock models.Stock
	if err := s.db.Where("ticker = ?", ticker).First(&stock).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

// UpsertStock inserts or updates a cached stock by ticker
func (s *StockStore) UpsertStock(stock *models.Stock) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "last_refreshed_at", "updated_at"}),
	}).Create(stock).Error
	if err != nil {
		return fmt.Errorf("failed to upsert stock %s: %w", stock.Ticker, err)
	}
	return nil
}

// GetEvents returns all cached events for a ticker in deterministic order.
// The owning Stock row is preloaded so callers can render the company name.
func (s *StockStore) GetEvents(ticker string) ([]models.StockEvent, error) {
	var events []models.StockEvent
	err := s.db.Preload("Stock").
		Where("stock_ticker = ?", ticker).
		Order("date ASC, stock_ticker ASC, type ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load events for %s: %w", ticker, err)
	}
	return events, nil
}

// GetEventsForTickers returns all cached events for a set of tickers with
// their Stock rows preloaded, ordered by date, then ticker, then type. The
// order is part of the contract: feed output must be reproducible.
func (s *StockStore) GetEventsForTickers(tickers []string) ([]models.StockEvent, error) {
	if len(tickers) == 0 {
		return nil, nil
	}
	var events []models.StockEvent
	err := s.db.Preload("Stock").
		Where("stock_ticker IN ?", tickers).
		Order("date ASC, stock_ticker ASC, type ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	return events, nil
}

// UpsertEvents inserts or updates events by their identity triple. An event
// sharing a (ticker, type, date) with an existing row updates that row in
// place; duplicates are never appended.
func (s *StockStore) UpsertEvents(events []models.StockEvent) error {
	if len(events) == 0 {
		return nil
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stock_ticker"}, {Name: "type"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"source", "amount", "last_refreshed_at", "updated_at"}),
	}).Create(&events).Error
	if err != nil {
		return fmt.Errorf("failed to upsert events: %w", err)
	}
	return nil
}

// ListStaleTickers returns the tickers whose cache entry is older than the
// given threshold, oldest first. Used by the refresh scheduler.
func (s *StockStore) ListStaleTickers(threshold time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-threshold)
	var tickers []string
	err := s.db.Model(&models.Stock{}).
		Where("last_refreshed_at < ?", cutoff).
		Order("last_refreshed_at ASC").
		Pluck("ticker", &tickers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale tickers: %w", err)
	}
	return tickers, nil
}
