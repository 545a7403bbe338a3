package controllers

import (
	"errors"
	"net/http"
	"strings"

	"ticker_calendar_backend/services"

	"github.com/gin-gonic/gin"
)

// CalendarController serves the public iCalendar feeds
type CalendarController struct {
	calendars *services.CalendarService
}

// NewCalendarController creates a new calendar controller
func NewCalendarController(calendars *services.CalendarService) *CalendarController {
	return &CalendarController{calendars: calendars}
}

// GetCalendar serves the iCalendar feed for a watchlist token. The route is
// public: possession of the token is the only credential.
// GET /calendar/:token.ics
func (cc *CalendarController) GetCalendar(c *gin.Context) {
	token := strings.TrimSuffix(c.Param("token"), ".ics")
	if token == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Calendar not found"})
		return
	}

	ics, err := cc.calendars.GetCalendarByToken(token)
	if err != nil {
		if errors.Is(err, services.ErrTokenNotFound) || errors.Is(err, services.ErrWatchlistNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Calendar not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build calendar"})
		return
	}

	// Calendar clients poll this URL; make sure they never cache a stale body
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Content-Disposition", "attachment; filename=\""+services.ICSFilename(token)+"\"")
	c.Data(http.StatusOK, services.ICSContentType, ics)
}
