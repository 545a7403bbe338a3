package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider returns canned answers for facade tests.
type scriptedProvider struct {
	name       string
	stock      *StockInfo
	stockErr   error
	events     []EventInfo
	eventsErr  error
	callCount  int
	eventCalls int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) LookupStock(ctx context.Context, ticker string) (*StockInfo, error) {
	p.callCount++
	return p.stock, p.stockErr
}

func (p *scriptedProvider) SearchStock(ctx context.Context, name string) (*StockInfo, error) {
	p.callCount++
	return p.stock, p.stockErr
}

func (p *scriptedProvider) LookupEvents(ctx context.Context, ticker string, eventTypes []string) ([]EventInfo, error) {
	p.eventCalls++
	return p.events, p.eventsErr
}

func TestFacadeFallsBackOnTransientError(t *testing.T) {
	failing := &scriptedProvider{name: "first", stockErr: errors.New("connection refused")}
	working := &scriptedProvider{name: "second", stock: &StockInfo{Ticker: "AAPL", Name: "Apple Inc"}}
	facade := NewFacadeWithOrder([]Provider{failing, working}, []Provider{failing, working})

	stock, err := facade.ResolveStock(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", stock.Name)
	assert.Equal(t, 1, failing.callCount)
	assert.Equal(t, 1, working.callCount)
}

func TestFacadeContinuesPastTickerUnknown(t *testing.T) {
	// one provider not knowing a ticker is not proof it does not exist
	ignorant := &scriptedProvider{name: "first", stockErr: ErrTickerUnknown}
	working := &scriptedProvider{name: "second", stock: &StockInfo{Ticker: "OBSCURE", Name: "Obscure Corp"}}
	facade := NewFacadeWithOrder([]Provider{ignorant, working}, []Provider{ignorant, working})

	stock, err := facade.ResolveStock(context.Background(), "OBSCURE")
	require.NoError(t, err)
	assert.Equal(t, "OBSCURE", stock.Ticker)
}

func TestFacadeAllProvidersExhausted(t *testing.T) {
	first := &scriptedProvider{name: "first", stockErr: ErrTickerUnknown}
	second := &scriptedProvider{name: "second", stockErr: errors.New("rate limit exceeded")}
	facade := NewFacadeWithOrder([]Provider{first, second}, []Provider{first, second})

	_, err := facade.ResolveStock(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrStockNotFound)
	assert.Equal(t, 1, first.callCount)
	assert.Equal(t, 1, second.callCount)
}

func TestFacadeFirstAnswerWins(t *testing.T) {
	events := []EventInfo{{
		Ticker: "AAPL",
		Type:   "EARNINGS_ANNOUNCEMENT",
		Date:   time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC),
	}}
	primary := &scriptedProvider{name: "first", events: events}
	secondary := &scriptedProvider{name: "second", events: []EventInfo{{Ticker: "AAPL", Type: "STOCK_SPLIT"}}}
	facade := NewFacadeWithOrder([]Provider{primary, secondary}, []Provider{primary, secondary})

	got, err := facade.ResolveEvents(context.Background(), "AAPL", []string{"EARNINGS_ANNOUNCEMENT"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "EARNINGS_ANNOUNCEMENT", got[0].Type)
	assert.Equal(t, 0, secondary.eventCalls, "no cross-provider merging")
}

func TestFacadeEventsSkipUnsupportedProvider(t *testing.T) {
	limited := &scriptedProvider{name: "first", eventsErr: ErrNotSupported}
	full := &scriptedProvider{name: "second", events: []EventInfo{{Ticker: "AAPL", Type: "DIVIDEND_EX"}}}
	facade := NewFacadeWithOrder([]Provider{limited, full}, []Provider{limited, full})

	got, err := facade.ResolveEvents(context.Background(), "AAPL", []string{"DIVIDEND_EX"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "DIVIDEND_EX", got[0].Type)
}

func TestFacadeReportsFetchOutcomes(t *testing.T) {
	failing := &scriptedProvider{name: "first", stockErr: errors.New("boom")}
	working := &scriptedProvider{name: "second", stock: &StockInfo{Ticker: "AAPL"}}
	facade := NewFacadeWithOrder([]Provider{failing, working}, []Provider{failing, working})

	var logged []string
	facade.SetFetchLogger(fetchLoggerFunc(func(provider, subject, operation string, err error) {
		outcome := "ok"
		if err != nil {
			outcome = "err"
		}
		logged = append(logged, provider+":"+operation+":"+outcome)
	}))

	_, err := facade.ResolveStock(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, []string{"first:lookup_stock:err", "second:lookup_stock:ok"}, logged)
}

type fetchLoggerFunc func(provider, subject, operation string, err error)

func (f fetchLoggerFunc) LogFetch(provider, subject, operation string, err error) {
	f(provider, subject, operation, err)
}
