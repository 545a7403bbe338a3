package providers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"ticker_calendar_backend/models"
)

// AlphaVantageBaseURL is the endpoint for all Alpha Vantage queries
const AlphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantage is the Alpha Vantage REST client. It serves both company
// metadata (SYMBOL_SEARCH) and all six event categories (EARNINGS_CALENDAR,
// DIVIDENDS, SPLITS).
//
// The free tier allows 5 requests per minute; the limiter is shared across
// all tickers so concurrent refreshes respect the vendor quota.
type AlphaVantage struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewAlphaVantage creates a new Alpha Vantage client
func NewAlphaVantage(apiKey string) *AlphaVantage {
	return &AlphaVantage{
		apiKey:  apiKey,
		baseURL: AlphaVantageBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(12*time.Second), 1),
	}
}

// Name returns the provider name used as event provenance
func (av *AlphaVantage) Name() string {
	return "AlphaVantage"
}

// avSearchResponse represents the SYMBOL_SEARCH response structure
type avSearchResponse struct {
	BestMatches []struct {
		Symbol string `json:"1. symbol"`
		Name   string `json:"2. name"`
	} `json:"bestMatches"`
}

// avDividendsResponse represents the DIVIDENDS response structure
type avDividendsResponse struct {
	Symbol string `json:"symbol"`
	Data   []struct {
		ExDividendDate  string `json:"ex_dividend_date"`
		DeclarationDate string `json:"declaration_date"`
		RecordDate      string `json:"record_date"`
		PaymentDate     string `json:"payment_date"`
		Amount          string `json:"amount"`
	} `json:"data"`
}

// avSplitsResponse represents the SPLITS response structure
type avSplitsResponse struct {
	Symbol string `json:"symbol"`
	Data   []struct {
		EffectiveDate string `json:"effective_date"`
		SplitFactor   string `json:"split_factor"`
	} `json:"data"`
}

// LookupStock resolves company metadata for a ticker via SYMBOL_SEARCH,
// preferring an exact symbol match over the first search hit.
func (av *AlphaVantage) LookupStock(ctx context.Context, ticker string) (*StockInfo, error) {
	body, err := av.get(ctx, url.Values{
		"function": {"SYMBOL_SEARCH"},
		"keywords": {ticker},
	})
	if err != nil {
		return nil, err
	}

	var result avSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("alphavantage: failed to parse search response: %w", err)
	}
	if len(result.BestMatches) == 0 {
		return nil, fmt.Errorf("alphavantage: %w: %s", ErrTickerUnknown, ticker)
	}

	match := result.BestMatches[0]
	for _, item := range result.BestMatches {
		if strings.EqualFold(item.Symbol, ticker) {
			match = item
			break
		}
	}
	if match.Symbol == "" || match.Name == "" {
		return nil, fmt.Errorf("alphavantage: %w: %s", ErrTickerUnknown, ticker)
	}

	return &StockInfo{
		Ticker: strings.ToUpper(match.Symbol),
		Name:   match.Name,
	}, nil
}

// SearchStock resolves company metadata from a company name, taking the
// best search match.
func (av *AlphaVantage) SearchStock(ctx context.Context, name string) (*StockInfo, error) {
	body, err := av.get(ctx, url.Values{
		"function": {"SYMBOL_SEARCH"},
		"keywords": {name},
	})
	if err != nil {
		return nil, err
	}

	var result avSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("alphavantage: failed to parse search response: %w", err)
	}
	if len(result.BestMatches) == 0 || result.BestMatches[0].Symbol == "" {
		return nil, fmt.Errorf("alphavantage: %w: no match for name %q", ErrTickerUnknown, name)
	}

	return &StockInfo{
		Ticker: strings.ToUpper(result.BestMatches[0].Symbol),
		Name:   result.BestMatches[0].Name,
	}, nil
}

// LookupEvents fetches the requested event categories. Earnings come from
// the EARNINGS_CALENDAR CSV endpoint, dividend dates from DIVIDENDS and
// splits from SPLITS.
func (av *AlphaVantage) LookupEvents(ctx context.Context, ticker string, eventTypes []string) ([]EventInfo, error) {
	requested := make(map[string]bool, len(eventTypes))
	for _, eventType := range eventTypes {
		requested[eventType] = true
	}

	var events []EventInfo

	if requested[models.EventEarningsAnnouncement] {
		earnings, err := av.fetchEarnings(ctx, ticker)
		if err != nil {
			return nil, err
		}
		events = append(events, earnings...)
	}

	wantsDividends := requested[models.EventDividendEx] ||
		requested[models.EventDividendDeclaration] ||
		requested[models.EventDividendRecord] ||
		requested[models.EventDividendPayment]
	if wantsDividends {
		dividends, err := av.fetchDividends(ctx, ticker)
		if err != nil {
			return nil, err
		}
		// The DIVIDENDS endpoint returns all four date kinds; keep only the
		// requested ones.
		for _, event := range dividends {
			if requested[event.Type] {
				events = append(events, event)
			}
		}
	}

	if requested[models.EventStockSplit] {
		splits, err := av.fetchSplits(ctx, ticker)
		if err != nil {
			return nil, err
		}
		events = append(events, splits...)
	}

	return events, nil
}

// fetchEarnings retrieves the 12-month earnings calendar (CSV endpoint)
func (av *AlphaVantage) fetchEarnings(ctx context.Context, ticker string) ([]EventInfo, error) {
	body, err := av.get(ctx, url.Values{
		"function": {"EARNINGS_CALENDAR"},
		"symbol":   {ticker},
		"horizon":  {"12month"},
	})
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("alphavantage: failed to parse earnings CSV: %w", err)
	}
	if len(records) < 1 {
		return nil, nil
	}

	header := records[0]
	symbolIdx, dateIdx := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "symbol":
			symbolIdx = i
		case "reportDate":
			dateIdx = i
		}
	}
	if symbolIdx < 0 || dateIdx < 0 {
		return nil, fmt.Errorf("alphavantage: unexpected earnings CSV header: %v", header)
	}

	var events []EventInfo
	for _, row := range records[1:] {
		if len(row) <= symbolIdx || len(row) <= dateIdx {
			continue
		}
		if !strings.EqualFold(row[symbolIdx], ticker) {
			continue
		}
		date, err := parseEventDate(row[dateIdx])
		if err != nil {
			continue
		}
		events = append(events, EventInfo{
			Ticker: strings.ToUpper(ticker),
			Type:   models.EventEarningsAnnouncement,
			Date:   date,
			Source: av.Name(),
		})
	}
	return events, nil
}

// fetchDividends retrieves all dividend date kinds for a ticker
func (av *AlphaVantage) fetchDividends(ctx context.Context, ticker string) ([]EventInfo, error) {
	body, err := av.get(ctx, url.Values{
		"function": {"DIVIDENDS"},
		"symbol":   {ticker},
	})
	if err != nil {
		return nil, err
	}

	var result avDividendsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("alphavantage: failed to parse dividends response: %w", err)
	}
	if !strings.EqualFold(result.Symbol, ticker) {
		return nil, nil
	}

	var events []EventInfo
	for _, item := range result.Data {
		amount := decimal.Zero
		if parsed, err := decimal.NewFromString(item.Amount); err == nil {
			amount = parsed
		}

		dateKinds := []struct {
			dateStr   string
			eventType string
		}{
			{item.ExDividendDate, models.EventDividendEx},
			{item.DeclarationDate, models.EventDividendDeclaration},
			{item.RecordDate, models.EventDividendRecord},
			{item.PaymentDate, models.EventDividendPayment},
		}
		for _, kind := range dateKinds {
			// Future unannounced dates come back as "None"
			date, err := parseEventDate(kind.dateStr)
			if err != nil {
				continue
			}
			events = append(events, EventInfo{
				Ticker: strings.ToUpper(ticker),
				Type:   kind.eventType,
				Date:   date,
				Amount: amount,
				Source: av.Name(),
			})
		}
	}
	return events, nil
}

// fetchSplits retrieves stock split events for a ticker
func (av *AlphaVantage) fetchSplits(ctx context.Context, ticker string) ([]EventInfo, error) {
	body, err := av.get(ctx, url.Values{
		"function": {"SPLITS"},
		"symbol":   {ticker},
	})
	if err != nil {
		return nil, err
	}

	var result avSplitsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("alphavantage: failed to parse splits response: %w", err)
	}
	if !strings.EqualFold(result.Symbol, ticker) {
		return nil, nil
	}

	var events []EventInfo
	for _, item := range result.Data {
		date, err := parseEventDate(item.EffectiveDate)
		if err != nil {
			continue
		}
		factor := decimal.Zero
		if parsed, err := decimal.NewFromString(item.SplitFactor); err == nil {
			factor = parsed
		}
		events = append(events, EventInfo{
			Ticker: strings.ToUpper(ticker),
			Type:   models.EventStockSplit,
			Date:   date,
			Amount: factor,
			Source: av.Name(),
		})
	}
	return events, nil
}

// get performs a rate-limited GET against the Alpha Vantage API and
// classifies the vendor's in-band error payloads.
func (av *AlphaVantage) get(ctx context.Context, params url.Values) ([]byte, error) {
	if err := av.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("alphavantage: rate limiter: %w", err)
	}

	params.Set("apikey", av.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, av.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: failed to create request: %w", err)
	}

	resp, err := av.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: failed to read response: %w", err)
	}

	// Alpha Vantage reports rate limiting and misuse in-band as a JSON
	// object with an Information/Note/Error Message key, even on CSV
	// endpoints.
	if msg := avErrorMessage(body); msg != "" {
		return nil, fmt.Errorf("alphavantage: API error: %s", msg)
	}

	return body, nil
}

// avErrorMessage extracts an in-band error message from a response body, or
// returns empty when the body is a normal payload.
func avErrorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if !strings.HasPrefix(trimmed, "{") {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"Information", "Note", "Error Message"} {
		if raw, ok := payload[key]; ok {
			var msg string
			if err := json.Unmarshal(raw, &msg); err == nil {
				return msg
			}
			return string(raw)
		}
	}
	return ""
}

// parseEventDate parses a provider date string into a UTC midnight value.
// Events are day-granularity, so the time of day is always zero.
func parseEventDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "None" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	date, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return date, nil
}
