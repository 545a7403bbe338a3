package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ticker_calendar_backend/models"
)

// SettingsUpdate carries a partial settings change. Nil fields are left
// untouched.
type SettingsUpdate struct {
	IncludeEarningsAnnouncement *bool          `json:"include_earnings_announcement"`
	IncludeDividendEx           *bool          `json:"include_dividend_ex"`
	IncludeDividendDeclaration  *bool          `json:"include_dividend_declaration"`
	IncludeDividendRecord       *bool          `json:"include_dividend_record"`
	IncludeDividendPayment      *bool          `json:"include_dividend_payment"`
	IncludeStockSplit           *bool          `json:"include_stock_split"`
	ReminderBefore              *time.Duration `json:"reminder_before"`
}

// WatchlistService manages watchlists, their settings and their follows.
// All operations are scoped to the owning user.
type WatchlistService struct {
	db     *gorm.DB
	stocks *StockService
	tokens *TokenGateway
}

// NewWatchlistService creates a new watchlist service
func NewWatchlistService(db *gorm.DB, stocks *StockService, tokens *TokenGateway) *WatchlistService {
	return &WatchlistService{
		db:     db,
		stocks: stocks,
		tokens: tokens,
	}
}

// Create creates a watchlist with default settings and a calendar token in
// one transaction. A watchlist never exists without its settings row.
func (s *WatchlistService) Create(userID uint, name string) (*models.Watchlist, error) {
	if name == "" {
		return nil, errors.New("watchlist name is required")
	}

	token, err := GenerateCalendarToken()
	if err != nil {
		return nil, err
	}

	watchlist := &models.Watchlist{
		UserID:        userID,
		Name:          name,
		CalendarToken: token,
		Settings:      models.DefaultWatchlistSettings(),
	}
	if err := s.db.Create(watchlist).Error; err != nil {
		return nil, fmt.Errorf("failed to create watchlist: %w", err)
	}
	return watchlist, nil
}

// List returns all watchlists of a user, newest first
func (s *WatchlistService) List(userID uint) ([]models.Watchlist, error) {
	var watchlists []models.Watchlist
	err := s.db.Preload("Settings").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&watchlists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlists: %w", err)
	}
	return watchlists, nil
}

// Get returns one watchlist of a user, or ErrWatchlistNotFound
func (s *WatchlistService) Get(userID, watchlistID uint) (*models.Watchlist, error) {
	var watchlist models.Watchlist
	err := s.db.Preload("Settings").Preload("Follows").Preload("Follows.Stock").
		Where("id = ? AND user_id = ?", watchlistID, userID).
		First(&watchlist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWatchlistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist: %w", err)
	}
	return &watchlist, nil
}

// Rename updates a watchlist's display name
func (s *WatchlistService) Rename(userID, watchlistID uint, name string) error {
	if name == "" {
		return errors.New("watchlist name is required")
	}
	result := s.db.Model(&models.Watchlist{}).
		Where("id = ? AND user_id = ?", watchlistID, userID).
		Update("name", name)
	if result.Error != nil {
		return fmt.Errorf("failed to rename watchlist: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWatchlistNotFound
	}
	return nil
}

// UpdateSettings applies a partial settings change to a watchlist
func (s *WatchlistService) UpdateSettings(userID, watchlistID uint, update SettingsUpdate) error {
	if _, err := s.Get(userID, watchlistID); err != nil {
		return err
	}

	changes := map[string]interface{}{}
	if update.IncludeEarningsAnnouncement != nil {
		changes["include_earnings_announcement"] = *update.IncludeEarningsAnnouncement
	}
	if update.IncludeDividendEx != nil {
		changes["include_dividend_ex"] = *update.IncludeDividendEx
	}
	if update.IncludeDividendDeclaration != nil {
		changes["include_dividend_declaration"] = *update.IncludeDividendDeclaration
	}
	if update.IncludeDividendRecord != nil {
		changes["include_dividend_record"] = *update.IncludeDividendRecord
	}
	if update.IncludeDividendPayment != nil {
		changes["include_dividend_payment"] = *update.IncludeDividendPayment
	}
	if update.IncludeStockSplit != nil {
		changes["include_stock_split"] = *update.IncludeStockSplit
	}
	if update.ReminderBefore != nil {
		changes["reminder_before"] = *update.ReminderBefore
	}
	if len(changes) == 0 {
		return nil
	}

	err := s.db.Model(&models.WatchlistSettings{}).
		Where("watchlist_id = ?", watchlistID).
		Updates(changes).Error
	if err != nil {
		return fmt.Errorf("failed to update watchlist settings: %w", err)
	}
	return nil
}

// Delete removes a watchlist together with its settings and follows.
// Followed stocks and their events stay cached for other watchlists.
func (s *WatchlistService) Delete(userID, watchlistID uint) error {
	watchlist, err := s.Get(userID, watchlistID)
	if err != nil {
		return err
	}
	err = s.db.Select("Settings", "Follows").Delete(watchlist).Error
	if err != nil {
		return fmt.Errorf("failed to delete watchlist: %w", err)
	}
	return nil
}

// AddStock follows a ticker on a watchlist. On a cache miss the stock is
// fetched through the provider facade synchronously (cache-aside); the
// follow insert is idempotent, so a second identical add is a no-op.
func (s *WatchlistService) AddStock(ctx context.Context, userID, watchlistID uint, ticker string) (*models.Stock, error) {
	if _, err := s.Get(userID, watchlistID); err != nil {
		return nil, err
	}

	stock, err := s.stocks.GetOrFetchStock(ctx, ticker)
	if err != nil {
		return nil, err
	}

	follow := models.Follow{
		WatchlistID: watchlistID,
		StockTicker: stock.Ticker,
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "watchlist_id"}, {Name: "stock_ticker"}},
		DoNothing: true,
	}).Create(&follow).Error
	if err != nil {
		return nil, fmt.Errorf("failed to follow stock %s: %w", stock.Ticker, err)
	}
	return stock, nil
}

// RemoveStock unfollows a ticker. The cached stock and its events survive
// for reuse by other watchlists.
func (s *WatchlistService) RemoveStock(userID, watchlistID uint, ticker string) error {
	if _, err := s.Get(userID, watchlistID); err != nil {
		return err
	}

	result := s.db.Where("watchlist_id = ? AND stock_ticker = ?", watchlistID, models.NormalizeTicker(ticker)).
		Delete(&models.Follow{})
	if result.Error != nil {
		return fmt.Errorf("failed to unfollow stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStockNotFound
	}
	return nil
}

// ListStocks returns the stocks a watchlist follows, newest follow first
func (s *WatchlistService) ListStocks(userID, watchlistID uint) ([]models.Stock, error) {
	if _, err := s.Get(userID, watchlistID); err != nil {
		return nil, err
	}

	var follows []models.Follow
	err := s.db.Preload("Stock").
		Where("watchlist_id = ?", watchlistID).
		Order("created_at DESC").
		Find(&follows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist stocks: %w", err)
	}

	stocks := make([]models.Stock, 0, len(follows))
	for _, follow := range follows {
		stocks = append(stocks, follow.Stock)
	}
	return stocks, nil
}

// RotateToken swaps the watchlist's calendar token after checking ownership
func (s *WatchlistService) RotateToken(userID, watchlistID uint) (string, error) {
	if _, err := s.Get(userID, watchlistID); err != nil {
		return "", err
	}
	return s.tokens.Rotate(watchlistID)
}
