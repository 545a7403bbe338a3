package services

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"ticker_calendar_backend/models"
	"ticker_calendar_backend/services/providers"
)

// ErrStockNotFound is returned when a ticker cannot be resolved from the
// cache or from any provider.
var ErrStockNotFound = providers.ErrStockNotFound

// StockService implements the cache-aside read path over the event cache:
// a lookup for an absent or stale ticker fetches through the provider facade
// synchronously and persists the result, while already-followed tickers are
// kept current by the background refresh scheduler.
type StockService struct {
	store    *StockStore
	facade   *providers.Facade
	freshFor time.Duration
}

// NewStockService creates a new stock service. freshFor is the window during
// which a cached ticker is served without touching any provider.
func NewStockService(store *StockStore, facade *providers.Facade, freshFor time.Duration) *StockService {
	return &StockService{
		store:    store,
		facade:   facade,
		freshFor: freshFor,
	}
}

// GetOrFetchStock returns the cached stock for a ticker, fetching through
// the provider facade when the cache entry is absent or stale. The ticker is
// uppercase-normalized before any lookup.
func (s *StockService) GetOrFetchStock(ctx context.Context, ticker string) (*models.Stock, error) {
	ticker = models.NormalizeTicker(ticker)
	if ticker == "" {
		return nil, ErrStockNotFound
	}

	stock, err := s.store.GetStock(ticker)
	if err == nil && time.Since(stock.LastRefreshedAt) < s.freshFor {
		return stock, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	resolved, refreshErr := s.refresh(ctx, ticker)
	if refreshErr != nil {
		// A stale entry is still served when every provider is failing;
		// freshness is best-effort on the read path.
		if stock != nil {
			log.Printf("Serving stale cache for %s, refresh failed: %v", ticker, refreshErr)
			return stock, nil
		}
		return nil, refreshErr
	}

	// Providers may canonicalize the requested symbol; the refresh reports
	// the ticker the entry was actually cached under.
	stock, err = s.store.GetStock(resolved)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStockNotFound
	}
	return stock, err
}

// SearchStockByName resolves a company name to a cached stock, fetching
// metadata and events through the facade when the resolved ticker is not
// cached yet.
func (s *StockService) SearchStockByName(ctx context.Context, name string) (*models.Stock, error) {
	info, err := s.facade.ResolveStockByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.GetOrFetchStock(ctx, info.Ticker)
}

// RefreshStock fetches metadata and events for all six categories from the
// provider facade and upserts them into the cache. The ticker's
// last-refreshed timestamp is bumped only after a successful provider
// response; partial category coverage from a provider still counts the whole
// ticker as fresh (all-or-nothing per refresh).
func (s *StockService) RefreshStock(ctx context.Context, ticker string) error {
	_, err := s.refresh(ctx, ticker)
	return err
}

// refresh performs the provider fetch and returns the ticker the stock was
// cached under, which may differ from the requested one when a provider
// canonicalizes the symbol.
func (s *StockService) refresh(ctx context.Context, ticker string) (string, error) {
	ticker = models.NormalizeTicker(ticker)

	info, err := s.facade.ResolveStock(ctx, ticker)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	stock := &models.Stock{
		Ticker:          info.Ticker,
		Name:            info.Name,
		LastRefreshedAt: now,
	}
	if err := s.store.UpsertStock(stock); err != nil {
		return "", err
	}

	eventInfos, err := s.facade.ResolveEvents(ctx, info.Ticker, models.AllEventTypes())
	if err != nil {
		// Metadata resolved but no provider could serve events; the stock
		// stays cached with whatever events it already has.
		log.Printf("No provider returned events for %s: %v", info.Ticker, err)
		return info.Ticker, nil
	}

	events := make([]models.StockEvent, 0, len(eventInfos))
	for _, eventInfo := range eventInfos {
		events = append(events, models.StockEvent{
			StockTicker:     eventInfo.Ticker,
			Type:            eventInfo.Type,
			Date:            eventInfo.Date,
			Source:          eventInfo.Source,
			Amount:          eventInfo.Amount,
			LastRefreshedAt: now,
		})
	}
	return info.Ticker, s.store.UpsertEvents(events)
}

// GetEvents returns the cached events for a ticker without any fetch-through
func (s *StockService) GetEvents(ticker string) ([]models.StockEvent, error) {
	return s.store.GetEvents(models.NormalizeTicker(ticker))
}

// Store exposes the underlying cache store
func (s *StockService) Store() *StockStore {
	return s.store
}
