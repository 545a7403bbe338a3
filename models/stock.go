package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Event type constants. These form a closed set; every StockEvent carries
// exactly one of them.
const (
	EventEarningsAnnouncement = "EARNINGS_ANNOUNCEMENT"
	EventDividendEx           = "DIVIDEND_EX"
	EventDividendDeclaration  = "DIVIDEND_DECLARATION"
	EventDividendRecord       = "DIVIDEND_RECORD"
	EventDividendPayment      = "DIVIDEND_PAYMENT"
	EventStockSplit           = "STOCK_SPLIT"
)

// AllEventTypes returns every supported event type in a stable order.
func AllEventTypes() []string {
	return []string{
		EventEarningsAnnouncement,
		EventDividendEx,
		EventDividendDeclaration,
		EventDividendRecord,
		EventDividendPayment,
		EventStockSplit,
	}
}

// IsValidEventType checks whether the given type is part of the closed set.
func IsValidEventType(eventType string) bool {
	for _, valid := range AllEventTypes() {
		if eventType == valid {
			return true
		}
	}
	return false
}

// EventTypeDisplayName returns a human-readable name for an event type,
// used in calendar summaries.
func EventTypeDisplayName(eventType string) string {
	switch eventType {
	case EventEarningsAnnouncement:
		return "Earnings Announcement"
	case EventDividendEx:
		return "Dividend Ex-Date"
	case EventDividendDeclaration:
		return "Dividend Declaration"
	case EventDividendRecord:
		return "Dividend Record Date"
	case EventDividendPayment:
		return "Dividend Payment"
	case EventStockSplit:
		return "Stock Split"
	default:
		return eventType
	}
}

// NormalizeTicker trims and uppercases a ticker symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Stock represents a cached company. The ticker is the natural key and is
// always stored uppercase. Stocks are shared cache entries: they are created
// on first lookup or by the refresh scheduler and never deleted, since any
// number of watchlists may follow them.
type Stock struct {
	Ticker          string    `gorm:"primaryKey;size:16" json:"ticker"`
	Name            string    `json:"name"`
	LastRefreshedAt time.Time `gorm:"index" json:"last_refreshed_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StockEvent represents a single corporate event for a stock. The identity
// of an event is the (ticker, type, date) triple; re-fetching the same
// logical event updates the existing row in place.
type StockEvent struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	StockTicker     string          `gorm:"uniqueIndex:idx_event_identity;size:16;not null" json:"ticker"`
	Stock           Stock           `gorm:"foreignKey:StockTicker;references:Ticker;constraint:OnDelete:CASCADE" json:"stock,omitempty"`
	Type            string          `gorm:"uniqueIndex:idx_event_identity;size:32;not null" json:"type"`
	Date            time.Time       `gorm:"uniqueIndex:idx_event_identity;not null" json:"date"`
	Source          string          `json:"source"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,6)" json:"amount"` // dividend cash amount or split factor, when reported
	LastRefreshedAt time.Time       `json:"last_refreshed_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// MigrateStockModels runs database migrations for stock-related models
func MigrateStockModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Stock{},
		&StockEvent{},
	)
}
