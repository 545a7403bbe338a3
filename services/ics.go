package services

import (
	"fmt"
	"strings"
	"time"

	"ticker_calendar_backend/models"
)

// ICSContentType is the MIME type calendar clients expect
const ICSContentType = "text/calendar; charset=utf-8"

// icsProdID identifies this generator in emitted calendars
const icsProdID = "-//Ticker Calendar Tracker//Stock Events Calendar//EN"

// icsUIDDomain is the domain suffix of every event UID
const icsUIDDomain = "tickercaltracker.com"

// ICSFilename returns the attachment filename for a feed download
func ICSFilename(token string) string {
	return token + ".ics"
}

// BuildICS renders a resolved feed as an RFC 5545 iCalendar document.
//
// The output is deterministic: UIDs derive from each event's identity triple
// and DTSTAMP/LAST-MODIFIED come from the event's last-refreshed timestamp,
// never from the wall clock, so regenerating an unchanged feed is
// byte-for-byte identical. An empty feed produces a structurally valid empty
// calendar.
func BuildICS(feed *ResolvedFeed) []byte {
	name := feed.WatchlistName
	if name == "" {
		name = "Stock Events"
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + icsProdID,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
		"X-WR-CALNAME:" + escapeICSText(name),
		"X-WR-TIMEZONE:UTC",
		"X-WR-CALDESC:Stock events calendar",
	}

	for _, event := range feed.Events {
		lines = append(lines, buildVEvent(&event, feed.ReminderBefore)...)
	}

	lines = append(lines, "END:VCALENDAR")

	var b strings.Builder
	for _, line := range lines {
		for _, folded := range foldICSLine(line) {
			b.WriteString(folded)
			b.WriteString("\r\n")
		}
	}
	return []byte(b.String())
}

// buildVEvent renders one event as a VEVENT block with its reminder alarm
func buildVEvent(event *models.StockEvent, reminderBefore time.Duration) []string {
	dateStr := event.Date.UTC().Format("20060102")
	stamp := event.LastRefreshedAt.UTC().Format("20060102T150405Z")
	uid := fmt.Sprintf("%s-%s-%s@%s", event.StockTicker, event.Type, dateStr, icsUIDDomain)

	summary := fmt.Sprintf("%s: %s", event.StockTicker, models.EventTypeDisplayName(event.Type))

	lines := []string{
		"BEGIN:VEVENT",
		"UID:" + uid,
		"DTSTAMP:" + stamp,
		"DTSTART;VALUE=DATE:" + dateStr,
		"SUMMARY:" + escapeICSText(summary),
		"DESCRIPTION:" + escapeICSText(eventDescription(event)),
		"LAST-MODIFIED:" + stamp,
		"STATUS:CONFIRMED",
		"TRANSP:TRANSPARENT",
		"CATEGORIES:" + event.Type,
	}
	if event.Source != "" {
		lines = append(lines, "X-SOURCE:"+escapeICSText(event.Source))
	}
	if reminderBefore > 0 {
		lines = append(lines,
			"BEGIN:VALARM",
			"ACTION:DISPLAY",
			"DESCRIPTION:Reminder: Stock event upcoming",
			"TRIGGER:-"+icsDuration(reminderBefore),
			"END:VALARM",
		)
	}
	lines = append(lines, "END:VEVENT")
	return lines
}

// eventDescription builds a human-readable description per event category
func eventDescription(event *models.StockEvent) string {
	var b strings.Builder
	stockName := event.Stock.Name
	if stockName == "" {
		stockName = event.StockTicker
	}
	fmt.Fprintf(&b, "%s (%s) - %s\n\n", stockName, event.StockTicker, models.EventTypeDisplayName(event.Type))

	switch event.Type {
	case models.EventEarningsAnnouncement:
		b.WriteString("Company earnings report will be announced.")
	case models.EventDividendEx:
		b.WriteString("Ex-dividend date - last day to buy stock to receive the dividend.")
	case models.EventDividendDeclaration:
		b.WriteString("Dividend declaration date - company announces dividend details.")
	case models.EventDividendRecord:
		b.WriteString("Dividend record date - shareholders on record will receive dividend.")
	case models.EventDividendPayment:
		b.WriteString("Dividend payment date - dividend will be paid to shareholders.")
	case models.EventStockSplit:
		b.WriteString("Stock split effective date.")
	}

	if !event.Amount.IsZero() {
		if event.Type == models.EventStockSplit {
			fmt.Fprintf(&b, "\nSplit factor: %s", event.Amount.String())
		} else {
			fmt.Fprintf(&b, "\nDividend amount: %s", event.Amount.String())
		}
	}
	if event.Source != "" {
		fmt.Fprintf(&b, "\n\nSource: %s", event.Source)
	}
	return b.String()
}

// icsDuration formats a duration as an RFC 5545 duration value (P2D, PT12H,
// P1DT6H). Sub-minute precision is dropped; a zero or negative duration
// renders as P0D.
func icsDuration(d time.Duration) string {
	totalMinutes := int(d.Minutes())
	if totalMinutes <= 0 {
		return "P0D"
	}
	days := totalMinutes / (24 * 60)
	hours := (totalMinutes % (24 * 60)) / 60
	minutes := totalMinutes % 60

	var b strings.Builder
	b.WriteString("P")
	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if hours > 0 || minutes > 0 {
		b.WriteString("T")
		if hours > 0 {
			fmt.Fprintf(&b, "%dH", hours)
		}
		if minutes > 0 {
			fmt.Fprintf(&b, "%dM", minutes)
		}
	}
	if b.Len() == 1 {
		b.WriteString("0D")
	}
	return b.String()
}

// escapeICSText escapes text per RFC 5545: backslash, semicolon, comma and
// newline are special in TEXT values.
func escapeICSText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// foldICSLine folds a content line to the RFC 5545 75-octet limit.
// Continuation lines begin with a single space. Folding is done on byte
// boundaries of the UTF-8 encoding, backing off so a multi-byte rune is
// never split.
func foldICSLine(line string) []string {
	const limit = 75
	if len(line) <= limit {
		return []string{line}
	}

	var out []string
	bytes := []byte(line)
	width := limit
	for len(bytes) > width {
		cut := width
		for cut > 0 && bytes[cut]&0xC0 == 0x80 {
			cut--
		}
		out = append(out, string(bytes[:cut]))
		bytes = bytes[cut:]
		// continuation lines lose one octet to the leading space
		width = limit - 1
	}
	out = append(out, string(bytes))
	for i := 1; i < len(out); i++ {
		out[i] = " " + out[i]
	}
	return out
}
