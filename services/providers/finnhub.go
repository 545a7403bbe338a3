package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ticker_calendar_backend/models"
)

// FinnhubBaseURL is the endpoint for all Finnhub queries
const FinnhubBaseURL = "https://finnhub.io/api/v1"

// Finnhub is the Finnhub REST client. It serves company metadata
// (profile and symbol search) and earnings calendar events; Finnhub has no
// dividend-date or split calendar, so those categories are not supported.
//
// The free tier allows 60 requests per minute.
type Finnhub struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewFinnhub creates a new Finnhub client
func NewFinnhub(apiKey string) *Finnhub {
	return &Finnhub{
		apiKey:  apiKey,
		baseURL: FinnhubBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Name returns the provider name used as event provenance
func (fh *Finnhub) Name() string {
	return "Finnhub"
}

// fhProfileResponse represents the /stock/profile2 response structure
type fhProfileResponse struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
}

// fhSearchResponse represents the /search response structure
type fhSearchResponse struct {
	Count  int `json:"count"`
	Result []struct {
		Symbol      string `json:"symbol"`
		Description string `json:"description"`
	} `json:"result"`
}

// fhEarningsResponse represents the /calendar/earnings response structure
type fhEarningsResponse struct {
	EarningsCalendar []struct {
		Date   string `json:"date"`
		Symbol string `json:"symbol"`
	} `json:"earningsCalendar"`
}

// LookupStock resolves company metadata for a ticker via /stock/profile2
func (fh *Finnhub) LookupStock(ctx context.Context, ticker string) (*StockInfo, error) {
	body, err := fh.get(ctx, "/stock/profile2", url.Values{"symbol": {strings.ToUpper(ticker)}})
	if err != nil {
		return nil, err
	}

	var profile fhProfileResponse
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("finnhub: failed to parse profile response: %w", err)
	}

	// Finnhub answers an unknown symbol with an empty object
	if profile.Name == "" {
		return nil, fmt.Errorf("finnhub: %w: %s", ErrTickerUnknown, ticker)
	}

	symbol := profile.Ticker
	if symbol == "" {
		symbol = ticker
	}
	return &StockInfo{
		Ticker: strings.ToUpper(symbol),
		Name:   profile.Name,
	}, nil
}

// SearchStock resolves company metadata from a company name: search for the
// best symbol match, then load its full profile.
func (fh *Finnhub) SearchStock(ctx context.Context, name string) (*StockInfo, error) {
	body, err := fh.get(ctx, "/search", url.Values{"q": {name}})
	if err != nil {
		return nil, err
	}

	var search fhSearchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		return nil, fmt.Errorf("finnhub: failed to parse search response: %w", err)
	}
	if len(search.Result) == 0 || search.Result[0].Symbol == "" {
		return nil, fmt.Errorf("finnhub: %w: no match for name %q", ErrTickerUnknown, name)
	}

	return fh.LookupStock(ctx, search.Result[0].Symbol)
}

// LookupEvents fetches earnings announcements via /calendar/earnings for the
// coming year. All other event categories return ErrNotSupported.
func (fh *Finnhub) LookupEvents(ctx context.Context, ticker string, eventTypes []string) ([]EventInfo, error) {
	wantsEarnings := false
	for _, eventType := range eventTypes {
		if eventType == models.EventEarningsAnnouncement {
			wantsEarnings = true
			break
		}
	}
	if !wantsEarnings {
		return nil, fmt.Errorf("finnhub: %w: %v", ErrNotSupported, eventTypes)
	}

	now := time.Now().UTC()
	body, err := fh.get(ctx, "/calendar/earnings", url.Values{
		"symbol": {strings.ToUpper(ticker)},
		"from":   {now.Format("2006-01-02")},
		"to":     {now.AddDate(1, 0, 0).Format("2006-01-02")},
	})
	if err != nil {
		return nil, err
	}

	var calendar fhEarningsResponse
	if err := json.Unmarshal(body, &calendar); err != nil {
		return nil, fmt.Errorf("finnhub: failed to parse earnings response: %w", err)
	}

	var events []EventInfo
	for _, entry := range calendar.EarningsCalendar {
		if !strings.EqualFold(entry.Symbol, ticker) {
			continue
		}
		date, err := parseEventDate(entry.Date)
		if err != nil {
			continue
		}
		events = append(events, EventInfo{
			Ticker: strings.ToUpper(ticker),
			Type:   models.EventEarningsAnnouncement,
			Date:   date,
			Source: fh.Name(),
		})
	}
	return events, nil
}

// get performs a rate-limited GET against the Finnhub API
func (fh *Finnhub) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := fh.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("finnhub: rate limiter: %w", err)
	}

	params.Set("token", fh.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fh.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("finnhub: failed to create request: %w", err)
	}

	resp, err := fh.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("finnhub: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("finnhub: rate limit exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finnhub: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("finnhub: failed to read response: %w", err)
	}
	return body, nil
}
