package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"ticker_calendar_backend/models"
)

// ResolvedFeed is a watchlist's concrete event set after filters, dedup and
// ordering have been applied, ready for serialization.
type ResolvedFeed struct {
	WatchlistName  string
	ReminderBefore time.Duration
	Events         []models.StockEvent
}

// CalendarService resolves a watchlist into its calendar feed. Resolution
// reads only cached data — no network calls happen on this path; keeping the
// cache fresh is the refresh scheduler's job, and stale entries are served
// as-is.
type CalendarService struct {
	db     *gorm.DB
	store  *StockStore
	tokens *TokenGateway
}

// NewCalendarService creates a new calendar service
func NewCalendarService(db *gorm.DB, store *StockStore, tokens *TokenGateway) *CalendarService {
	return &CalendarService{
		db:     db,
		store:  store,
		tokens: tokens,
	}
}

// Tokens exposes the token gateway
func (s *CalendarService) Tokens() *TokenGateway {
	return s.tokens
}

// ResolveFeed loads a watchlist's settings and follows and produces its
// filtered, deduplicated, date-ordered event set. The ordering (date, then
// ticker, then type) is deterministic so repeated resolution of unchanged
// data yields identical output.
func (s *CalendarService) ResolveFeed(watchlistID uint) (*ResolvedFeed, error) {
	var watchlist models.Watchlist
	err := s.db.Preload("Settings").Where("id = ?", watchlistID).First(&watchlist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWatchlistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist %d: %w", watchlistID, err)
	}

	var follows []models.Follow
	if err := s.db.Where("watchlist_id = ?", watchlistID).Find(&follows).Error; err != nil {
		return nil, fmt.Errorf("failed to load follows for watchlist %d: %w", watchlistID, err)
	}

	tickers := make([]string, 0, len(follows))
	for _, follow := range follows {
		tickers = append(tickers, follow.StockTicker)
	}

	events, err := s.store.GetEventsForTickers(tickers)
	if err != nil {
		return nil, err
	}

	settings := watchlist.Settings
	filtered := make([]models.StockEvent, 0, len(events))
	seen := make(map[string]bool, len(events))
	for _, event := range events {
		if !settings.IncludesEventType(event.Type) {
			continue
		}
		identity := fmt.Sprintf("%s|%s|%s", event.StockTicker, event.Type, event.Date.UTC().Format("20060102"))
		if seen[identity] {
			continue
		}
		seen[identity] = true
		filtered = append(filtered, event)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if !filtered[i].Date.Equal(filtered[j].Date) {
			return filtered[i].Date.Before(filtered[j].Date)
		}
		if filtered[i].StockTicker != filtered[j].StockTicker {
			return filtered[i].StockTicker < filtered[j].StockTicker
		}
		return filtered[i].Type < filtered[j].Type
	})

	reminderBefore := settings.ReminderBefore
	if reminderBefore <= 0 {
		reminderBefore = models.DefaultReminderBefore
	}

	return &ResolvedFeed{
		WatchlistName:  watchlist.Name,
		ReminderBefore: reminderBefore,
		Events:         filtered,
	}, nil
}

// GetCalendarByToken resolves a calendar token and serializes the
// watchlist's feed as an iCalendar document.
func (s *CalendarService) GetCalendarByToken(token string) ([]byte, error) {
	watchlistID, err := s.tokens.Resolve(token)
	if err != nil {
		return nil, err
	}
	feed, err := s.ResolveFeed(watchlistID)
	if err != nil {
		return nil, err
	}
	return BuildICS(feed), nil
}
