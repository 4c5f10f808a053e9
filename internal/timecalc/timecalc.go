package timecalc

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the fixed YYYY-MM-DD form used for record dates.
const DateLayout = "2006-01-02"

// GenerateID creates a unique record ID from a timestamp and a random suffix.
func GenerateID(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s", t.Format("20060102-150405"), suffix)
}

// FormatDuration formats seconds as a human-readable string like "1h 40m" or "45m" or "30s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatDurationHHMMSS formats seconds as HH:MM:SS.
func FormatDurationHHMMSS(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Hours converts d to decimal hours rounded to two places.
func Hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Div(decimal.NewFromInt(int64(time.Hour))).Round(2)
}

// FormatHours formats d as decimal hours with two places, e.g. "7.50".
func FormatHours(d time.Duration) string {
	return Hours(d).StringFixed(2)
}

// DateKey returns the YYYY-MM-DD form of t in t's own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// WeekStart returns 00:00 of the Monday of the week containing t.
func WeekStart(t time.Time) time.Time {
	// Go's weekday: Sunday=0, Monday=1, …, Saturday=6
	offset := (int(t.Weekday()) + 6) % 7
	return StartOfDay(t.AddDate(0, 0, -offset))
}

// WeekRange returns the Monday and Sunday of the ISO week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	monday := WeekStart(t)
	return monday, EndOfDay(monday.AddDate(0, 0, 6))
}

// WeekDates returns the seven date keys, Monday first, of the week containing t.
func WeekDates(t time.Time) []string {
	monday := WeekStart(t)
	keys := make([]string, 7)
	for i := range keys {
		keys[i] = DateKey(monday.AddDate(0, 0, i))
	}
	return keys
}

// ISOWeekLabel returns a label like "2026-W09".
func ISOWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59 of the same day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
