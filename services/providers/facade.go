package providers

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Facade composes the configured providers behind a single lookup API.
// Providers are tried in a fixed priority order per capability; the first
// successful answer wins and no cross-provider merging takes place. A
// semantic "ticker unknown" from one provider does not stop the walk, since
// one vendor's ignorance does not prove non-existence. Only after every
// provider has been exhausted does the facade report ErrStockNotFound.
//
// The facade itself has no persistence side effects; callers store results.
type Facade struct {
	// metadataOrder is the priority order for company metadata lookups.
	// Finnhub leads because of its higher rate limit.
	metadataOrder []Provider

	// eventOrder is the priority order for event lookups. Alpha Vantage
	// leads because it covers all six event categories.
	eventOrder []Provider

	fetchLog FetchLogger
}

// NewFacade creates a facade over the default provider priority order
func NewFacade(alphaVantage *AlphaVantage, finnhub *Finnhub) *Facade {
	return &Facade{
		metadataOrder: []Provider{finnhub, alphaVantage},
		eventOrder:    []Provider{alphaVantage, finnhub},
	}
}

// NewFacadeWithOrder creates a facade with explicit priority orders.
// Used by tests and by deployments that want to re-rank providers.
func NewFacadeWithOrder(metadataOrder, eventOrder []Provider) *Facade {
	return &Facade{
		metadataOrder: metadataOrder,
		eventOrder:    eventOrder,
	}
}

// SetFetchLogger attaches an optional audit sink for provider calls
func (f *Facade) SetFetchLogger(fetchLog FetchLogger) {
	f.fetchLog = fetchLog
}

// ResolveStock resolves company metadata for a ticker, walking the metadata
// provider order.
func (f *Facade) ResolveStock(ctx context.Context, ticker string) (*StockInfo, error) {
	var lastErr error
	for _, provider := range f.metadataOrder {
		stock, err := provider.LookupStock(ctx, ticker)
		f.logFetch(provider, ticker, "lookup_stock", err)
		if err == nil {
			return stock, nil
		}
		log.Printf("Provider %s failed stock lookup for %s: %v", provider.Name(), ticker, err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no providers configured")
	}
	return nil, fmt.Errorf("%w: ticker %s: %v", ErrStockNotFound, ticker, lastErr)
}

// ResolveStockByName resolves company metadata from a free-form company name
func (f *Facade) ResolveStockByName(ctx context.Context, name string) (*StockInfo, error) {
	var lastErr error
	for _, provider := range f.metadataOrder {
		stock, err := provider.SearchStock(ctx, name)
		f.logFetch(provider, name, "search_stock", err)
		if err == nil {
			return stock, nil
		}
		log.Printf("Provider %s failed name search for %q: %v", provider.Name(), name, err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no providers configured")
	}
	return nil, fmt.Errorf("%w: name %q: %v", ErrStockNotFound, name, lastErr)
}

// ResolveEvents fetches events of the requested types for a ticker, walking
// the event provider order. The first provider that answers is authoritative
// for this call.
func (f *Facade) ResolveEvents(ctx context.Context, ticker string, eventTypes []string) ([]EventInfo, error) {
	var lastErr error
	for _, provider := range f.eventOrder {
		events, err := provider.LookupEvents(ctx, ticker, eventTypes)
		f.logFetch(provider, ticker, "lookup_events", err)
		if err == nil {
			return events, nil
		}
		if !errors.Is(err, ErrNotSupported) {
			log.Printf("Provider %s failed event lookup for %s: %v", provider.Name(), ticker, err)
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no providers configured")
	}
	return nil, fmt.Errorf("%w: events for ticker %s: %v", ErrStockNotFound, ticker, lastErr)
}

func (f *Facade) logFetch(provider Provider, subject, operation string, err error) {
	if f.fetchLog != nil {
		f.fetchLog.LogFetch(provider.Name(), subject, operation, err)
	}
}
