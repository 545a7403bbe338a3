package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultReminderBefore is the reminder lead time applied to new watchlists.
const DefaultReminderBefore = 24 * time.Hour

// Watchlist represents a user-owned named collection of followed tickers.
// The calendar token is an opaque bearer credential: anyone holding it can
// read the watchlist's calendar feed. At most one watchlist resolves from a
// given token at any time.
type Watchlist struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	UserID        uint              `gorm:"index;not null" json:"user_id"`
	User          User              `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Name          string            `gorm:"not null" json:"name"`
	CalendarToken string            `gorm:"uniqueIndex;size:64" json:"calendar_token"`
	Settings      WatchlistSettings `gorm:"foreignKey:WatchlistID;constraint:OnDelete:CASCADE" json:"settings,omitempty"`
	Follows       []Follow          `gorm:"foreignKey:WatchlistID;constraint:OnDelete:CASCADE" json:"follows,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// WatchlistSettings holds the per-category filters and reminder lead time for
// one watchlist. A settings row is created together with its watchlist and
// never exists on its own. The include flags deliberately carry no column
// defaults: explicit false must survive a create.
type WatchlistSettings struct {
	ID                          uint          `gorm:"primaryKey" json:"id"`
	WatchlistID                 uint          `gorm:"uniqueIndex;not null" json:"watchlist_id"`
	IncludeEarningsAnnouncement bool          `json:"include_earnings_announcement"`
	IncludeDividendEx           bool          `json:"include_dividend_ex"`
	IncludeDividendDeclaration  bool          `json:"include_dividend_declaration"`
	IncludeDividendRecord       bool          `json:"include_dividend_record"`
	IncludeDividendPayment      bool          `json:"include_dividend_payment"`
	IncludeStockSplit           bool          `json:"include_stock_split"`
	ReminderBefore              time.Duration `json:"reminder_before"`
	UpdatedAt                   time.Time     `json:"updated_at"`
}

// DefaultWatchlistSettings returns settings with every event category
// enabled and the default reminder lead time.
func DefaultWatchlistSettings() WatchlistSettings {
	return WatchlistSettings{
		IncludeEarningsAnnouncement: true,
		IncludeDividendEx:           true,
		IncludeDividendDeclaration:  true,
		IncludeDividendRecord:       true,
		IncludeDividendPayment:      true,
		IncludeStockSplit:           true,
		ReminderBefore:              DefaultReminderBefore,
	}
}

// IncludesEventType reports whether the given event category is enabled.
func (s *WatchlistSettings) IncludesEventType(eventType string) bool {
	switch eventType {
	case EventEarningsAnnouncement:
		return s.IncludeEarningsAnnouncement
	case EventDividendEx:
		return s.IncludeDividendEx
	case EventDividendDeclaration:
		return s.IncludeDividendDeclaration
	case EventDividendRecord:
		return s.IncludeDividendRecord
	case EventDividendPayment:
		return s.IncludeDividendPayment
	case EventStockSplit:
		return s.IncludeStockSplit
	default:
		return false
	}
}

// Follow links a watchlist to a cached stock. Unique per pair; deleting a
// follow leaves the stock and its events in the cache for other watchlists.
type Follow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	WatchlistID uint      `gorm:"uniqueIndex:idx_watchlist_ticker;not null" json:"watchlist_id"`
	StockTicker string    `gorm:"uniqueIndex:idx_watchlist_ticker;size:16;not null" json:"ticker"`
	Stock       Stock     `gorm:"foreignKey:StockTicker;references:Ticker" json:"stock,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// MigrateWatchlistModels runs database migrations for watchlist-related models
func MigrateWatchlistModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Watchlist{},
		&WatchlistSettings{},
		&Follow{},
	)
}
