package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"ticker_calendar_backend/models"
)

// ErrTokenNotFound is returned when a calendar token resolves to no watchlist
var ErrTokenNotFound = errors.New("calendar token not found")

// ErrWatchlistNotFound is returned when a watchlist id resolves to no row
var ErrWatchlistNotFound = errors.New("watchlist not found")

// calendarTokenBytes is the entropy of a calendar token. 32 random bytes
// make the token a brute-force-resistant bearer credential.
const calendarTokenBytes = 32

// TokenGateway maps opaque calendar tokens to watchlists. Tokens are the
// only credential on the feed path: holding one grants read access to that
// watchlist's calendar, so issue and rotation are the only ways a token
// comes into existence.
type TokenGateway struct {
	db *gorm.DB
}

// NewTokenGateway creates a new token gateway
func NewTokenGateway(db *gorm.DB) *TokenGateway {
	return &TokenGateway{db: db}
}

// GenerateCalendarToken returns a new URL-safe token from a
// cryptographically strong random source.
func GenerateCalendarToken() (string, error) {
	buf := make([]byte, calendarTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate calendar token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Resolve maps a token to its watchlist id, or ErrTokenNotFound
func (g *TokenGateway) Resolve(token string) (uint, error) {
	if token == "" {
		return 0, ErrTokenNotFound
	}
	var watchlist models.Watchlist
	err := g.db.Select("id").Where("calendar_token = ?", token).First(&watchlist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrTokenNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve calendar token: %w", err)
	}
	return watchlist.ID, nil
}

// Issue returns the watchlist's token, generating one only when the
// watchlist has none yet. Calling it repeatedly returns the same token.
func (g *TokenGateway) Issue(watchlistID uint) (string, error) {
	token, err := GenerateCalendarToken()
	if err != nil {
		return "", err
	}

	// Only a blank token is replaced, so concurrent Issue calls converge on
	// a single stored value.
	result := g.db.Model(&models.Watchlist{}).
		Where("id = ? AND (calendar_token IS NULL OR calendar_token = '')", watchlistID).
		Update("calendar_token", token)
	if result.Error != nil {
		return "", fmt.Errorf("failed to issue calendar token: %w", result.Error)
	}

	var watchlist models.Watchlist
	err = g.db.Select("calendar_token").Where("id = ?", watchlistID).First(&watchlist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrWatchlistNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load calendar token: %w", err)
	}
	return watchlist.CalendarToken, nil
}

// Rotate atomically replaces the watchlist's token. The swap is a single-row
// UPDATE: the prior token stops resolving in the same statement that makes
// the new one resolve, and a storage failure leaves the prior token valid.
func (g *TokenGateway) Rotate(watchlistID uint) (string, error) {
	token, err := GenerateCalendarToken()
	if err != nil {
		return "", err
	}

	result := g.db.Model(&models.Watchlist{}).
		Where("id = ?", watchlistID).
		Update("calendar_token", token)
	if result.Error != nil {
		return "", fmt.Errorf("failed to rotate calendar token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", ErrWatchlistNotFound
	}
	return token, nil
}
