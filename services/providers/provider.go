package providers

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel errors used to classify provider failures.
var (
	// ErrTickerUnknown is a semantic failure: the provider answered and does
	// not know the ticker. One provider's ignorance does not prove the ticker
	// does not exist, so the facade keeps trying the remaining providers.
	ErrTickerUnknown = errors.New("ticker unknown to provider")

	// ErrNotSupported means the provider has no endpoint for the requested
	// capability (for example dividend data on a provider that only serves
	// earnings calendars).
	ErrNotSupported = errors.New("capability not supported by provider")

	// ErrStockNotFound is the terminal negative result returned by the
	// facade once every provider has been exhausted.
	ErrStockNotFound = errors.New("stock not found from any provider")
)

// StockInfo is company metadata as returned by a provider, before it is
// persisted as a models.Stock.
type StockInfo struct {
	Ticker string
	Name   string
}

// EventInfo is a single corporate event as returned by a provider.
type EventInfo struct {
	Ticker string
	Type   string
	Date   time.Time
	Amount decimal.Decimal
	Source string
}

// Provider is one external stock-data vendor. Implementations are stateless
// apart from their rate limiter and must be safe for concurrent use.
type Provider interface {
	Name() string

	// LookupStock resolves company metadata for a ticker.
	LookupStock(ctx context.Context, ticker string) (*StockInfo, error)

	// SearchStock resolves company metadata from a free-form company name.
	SearchStock(ctx context.Context, name string) (*StockInfo, error)

	// LookupEvents fetches events of the requested types for a ticker.
	// Providers that cannot serve any of the requested types return
	// ErrNotSupported.
	LookupEvents(ctx context.Context, ticker string, eventTypes []string) ([]EventInfo, error)
}

// FetchLogger receives the outcome of every provider call the facade makes.
// Implementations must tolerate being called concurrently and must never
// block a fetch; a nil FetchLogger disables logging.
type FetchLogger interface {
	LogFetch(provider, ticker, operation string, err error)
}
