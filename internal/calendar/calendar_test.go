package calendar

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func shanghai(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		t.Fatalf("Failed to load timezone: %v", err)
	}
	return loc
}

func TestPreviousDayUsesLocation(t *testing.T) {
	loc := shanghai(t)
	// 2025-03-01 17:30 UTC is already 2025-03-02 in Shanghai.
	now := time.Date(2025, 3, 1, 17, 30, 0, 0, time.UTC)
	got := PreviousDay(now, loc).Format(Layout)
	if got != "2025-03-01" {
		t.Errorf("Expected 2025-03-01, got %s", got)
	}
}

func TestWeek(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		day, start, end string
	}{
		{"2025-01-15", "2025-01-13", "2025-01-19"}, // Wednesday
		{"2025-01-13", "2025-01-13", "2025-01-19"}, // Monday
		{"2025-01-19", "2025-01-13", "2025-01-19"}, // Sunday
		{"2025-01-01", "2024-12-30", "2025-01-05"},
	}
	for _, tt := range tests {
		day, _ := Parse(tt.day, loc)
		w := Week(day, loc)
		if w.Start.Format(Layout) != tt.start || w.End.Format(Layout) != tt.end {
			t.Errorf("Week(%s) = %s, want %s to %s", tt.day, w, tt.start, tt.end)
		}
	}
}

func TestMonth(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		day, start, end string
	}{
		{"2024-02-10", "2024-02-01", "2024-02-29"},
		{"2025-02-10", "2025-02-01", "2025-02-28"},
		{"2025-12-31", "2025-12-01", "2025-12-31"},
	}
	for _, tt := range tests {
		day, _ := Parse(tt.day, loc)
		w := Month(day, loc)
		if w.Start.Format(Layout) != tt.start || w.End.Format(Layout) != tt.end {
			t.Errorf("Month(%s) = %s, want %s to %s", tt.day, w, tt.start, tt.end)
		}
	}
}

func TestIsLastDayOfMonth(t *testing.T) {
	loc := time.UTC
	for day, want := range map[string]bool{
		"2024-02-29": true,
		"2025-02-28": true,
		"2024-02-28": false,
		"2025-12-31": true,
		"2025-06-15": false,
	} {
		d, _ := Parse(day, loc)
		if got := IsLastDayOfMonth(d, loc); got != want {
			t.Errorf("IsLastDayOfMonth(%s) = %v, want %v", day, got, want)
		}
	}
}

func TestWindowContains(t *testing.T) {
	loc := time.UTC
	day, _ := Parse("2025-01-15", loc)
	w := Week(day, loc)
	in, _ := Parse("2025-01-19", loc)
	out, _ := Parse("2025-01-20", loc)
	if !w.Contains(in) {
		t.Errorf("Expected %s to contain 2025-01-19", w)
	}
	if w.Contains(out) {
		t.Errorf("Expected %s not to contain 2025-01-20", w)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse("15/01/2025", time.UTC); err == nil {
		t.Fatal("Expected error for invalid date")
	}
}
