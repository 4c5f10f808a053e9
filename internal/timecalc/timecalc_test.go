package timecalc_test

import (
	"strings"
	"testing"
	"time"

	"github.com/Tiliavir/timeledger/internal/timecalc"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{45, "45s"},
		{60, "1m"},
		{90, "1m"},
		{3600, "1h 0m"},
		{3661, "1h 1m"},
		{5400, "1h 30m"},
	}
	for _, tt := range tests {
		got := timecalc.FormatDuration(tt.seconds)
		if got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatDurationHHMMSS(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00:00"},
		{61, "00:01:01"},
		{3661, "01:01:01"},
	}
	for _, tt := range tests {
		got := timecalc.FormatDurationHHMMSS(tt.seconds)
		if got != tt.want {
			t.Errorf("FormatDurationHHMMSS(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatHours(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0.00"},
		{8 * time.Hour, "8.00"},
		{7*time.Hour + 30*time.Minute, "7.50"},
		{20 * time.Minute, "0.33"},
		{time.Second, "0.00"},
	}
	for _, tt := range tests {
		got := timecalc.FormatHours(tt.d)
		if got != tt.want {
			t.Errorf("FormatHours(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestWeekStart(t *testing.T) {
	want := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   time.Time
	}{
		{"monday morning", time.Date(2026, 2, 23, 9, 0, 0, 0, time.UTC)},
		{"friday", time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)},
		{"sunday night", time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		if got := timecalc.WeekStart(tt.in); !got.Equal(want) {
			t.Errorf("WeekStart(%s) = %v, want %v", tt.name, got, want)
		}
	}
}

func TestWeekRange(t *testing.T) {
	// 2026-02-27 is a Friday (week 9).
	fri := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	monday, sunday := timecalc.WeekRange(fri)

	wantMonday := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	wantSunday := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)

	if !monday.Equal(wantMonday) {
		t.Errorf("WeekRange monday = %v, want %v", monday, wantMonday)
	}
	if !sunday.Equal(wantSunday) {
		t.Errorf("WeekRange sunday = %v, want %v", sunday, wantSunday)
	}
}

func TestWeekDates(t *testing.T) {
	got := timecalc.WeekDates(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	want := "2026-02-23,2026-02-24,2026-02-25,2026-02-26,2026-02-27,2026-02-28,2026-03-01"
	if strings.Join(got, ",") != want {
		t.Errorf("WeekDates = %v, want %s", got, want)
	}
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	d, err := timecalc.ParseDate("2026-02-27", loc)
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if timecalc.DateKey(d) != "2026-02-27" || d.Location() != loc {
		t.Errorf("ParseDate = %v, want 2026-02-27 in %v", d, loc)
	}
	if _, err := timecalc.ParseDate("27.02.2026", loc); err == nil {
		t.Error("ParseDate: expected error for non ISO date")
	}
}

func TestISOWeekLabel(t *testing.T) {
	fri := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	got := timecalc.ISOWeekLabel(fri)
	if got != "2026-W09" {
		t.Errorf("ISOWeekLabel = %q, want %q", got, "2026-W09")
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 2, 27, 10, 0, 0, 0, time.UTC)
	b := time.Date(2026, 2, 27, 23, 59, 59, 0, time.UTC)
	c := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	if !timecalc.SameDay(a, b) {
		t.Error("SameDay: expected same day for a and b")
	}
	if timecalc.SameDay(a, c) {
		t.Error("SameDay: expected different day for a and c")
	}
}

func TestGenerateID(t *testing.T) {
	ts := time.Date(2026, 2, 27, 8, 32, 10, 0, time.UTC)
	id := timecalc.GenerateID(ts)
	if len(id) != len("20260227-083210-xxxxxxxx") {
		t.Errorf("GenerateID length = %d, want %d", len(id), len("20260227-083210-xxxxxxxx"))
	}
	if id[:15] != "20260227-083210" {
		t.Errorf("GenerateID prefix = %q, want %q", id[:15], "20260227-083210")
	}
	if other := timecalc.GenerateID(ts); other == id {
		t.Errorf("GenerateID returned %q twice", id)
	}
}
