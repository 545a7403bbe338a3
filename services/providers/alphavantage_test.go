package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"ticker_calendar_backend/models"
)

// newTestAlphaVantage points the client at a stub server with the rate
// limiter disabled.
func newTestAlphaVantage(server *httptest.Server) *AlphaVantage {
	av := NewAlphaVantage("test-key")
	av.baseURL = server.URL
	av.limiter = rate.NewLimiter(rate.Inf, 1)
	return av
}

func alphaVantageStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		switch r.URL.Query().Get("function") {
		case "SYMBOL_SEARCH":
			w.Write([]byte(`{
				"bestMatches": [
					{"1. symbol": "AAPL.LON", "2. name": "Apple Inc CDR"},
					{"1. symbol": "AAPL", "2. name": "Apple Inc"}
				]
			}`))
		case "EARNINGS_CALENDAR":
			w.Write([]byte("symbol,name,reportDate,fiscalDateEnding,estimate,currency\n" +
				"AAPL,Apple Inc,2025-11-08,2025-09-30,1.60,USD\n" +
				"AAPL,Apple Inc,2026-02-05,2025-12-31,,USD\n" +
				"MSFT,Microsoft,2025-10-28,2025-09-30,3.10,USD\n"))
		case "DIVIDENDS":
			w.Write([]byte(`{
				"symbol": "AAPL",
				"data": [
					{
						"ex_dividend_date": "2025-11-10",
						"declaration_date": "2025-10-30",
						"record_date": "2025-11-11",
						"payment_date": "2025-11-14",
						"amount": "0.25"
					},
					{
						"ex_dividend_date": "2026-02-09",
						"declaration_date": "None",
						"record_date": "None",
						"payment_date": "None",
						"amount": "0.25"
					}
				]
			}`))
		case "SPLITS":
			w.Write([]byte(`{
				"symbol": "AAPL",
				"data": [
					{"effective_date": "2020-08-31", "split_factor": "4.0"}
				]
			}`))
		default:
			t.Errorf("unexpected function %q", r.URL.Query().Get("function"))
		}
	}))
}

func TestAlphaVantageLookupStockPrefersExactMatch(t *testing.T) {
	server := alphaVantageStub(t)
	defer server.Close()
	av := newTestAlphaVantage(server)

	stock, err := av.LookupStock(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", stock.Ticker)
	assert.Equal(t, "Apple Inc", stock.Name)
}

func TestAlphaVantageLookupStockUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bestMatches": []}`))
	}))
	defer server.Close()
	av := newTestAlphaVantage(server)

	_, err := av.LookupStock(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrTickerUnknown)
}

func TestAlphaVantageEarnings(t *testing.T) {
	server := alphaVantageStub(t)
	defer server.Close()
	av := newTestAlphaVantage(server)

	events, err := av.LookupEvents(context.Background(), "AAPL", []string{models.EventEarningsAnnouncement})
	require.NoError(t, err)
	require.Len(t, events, 2, "rows for other symbols are skipped")

	assert.Equal(t, "AAPL", events[0].Ticker)
	assert.Equal(t, models.EventEarningsAnnouncement, events[0].Type)
	assert.Equal(t, time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC), events[0].Date)
	assert.Equal(t, "AlphaVantage", events[0].Source)
}

func TestAlphaVantageDividendsFilterByRequestedKind(t *testing.T) {
	server := alphaVantageStub(t)
	defer server.Close()
	av := newTestAlphaVantage(server)

	events, err := av.LookupEvents(context.Background(), "AAPL",
		[]string{models.EventDividendEx, models.EventDividendPayment})
	require.NoError(t, err)

	// first record: ex + payment; second record: ex only ("None" dates skipped)
	require.Len(t, events, 3)
	byType := map[string]int{}
	for _, event := range events {
		byType[event.Type]++
		assert.True(t, decimal.RequireFromString("0.25").Equal(event.Amount))
	}
	assert.Equal(t, 2, byType[models.EventDividendEx])
	assert.Equal(t, 1, byType[models.EventDividendPayment])
	assert.Zero(t, byType[models.EventDividendRecord])
	assert.Zero(t, byType[models.EventDividendDeclaration])
}

func TestAlphaVantageSplits(t *testing.T) {
	server := alphaVantageStub(t)
	defer server.Close()
	av := newTestAlphaVantage(server)

	events, err := av.LookupEvents(context.Background(), "AAPL", []string{models.EventStockSplit})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventStockSplit, events[0].Type)
	assert.True(t, decimal.RequireFromString("4.0").Equal(events[0].Amount))
}

func TestAlphaVantageInBandError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`))
	}))
	defer server.Close()
	av := newTestAlphaVantage(server)

	_, err := av.LookupStock(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestParseEventDate(t *testing.T) {
	date, err := parseEventDate("2025-11-08")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC), date)

	_, err = parseEventDate("None")
	assert.Error(t, err)
	_, err = parseEventDate("")
	assert.Error(t, err)
	_, err = parseEventDate("08/11/2025")
	assert.Error(t, err)
}
