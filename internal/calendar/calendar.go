// Package calendar does the date arithmetic for daily, weekly and monthly
// reports. All values are calendar days in the configured timezone.
package calendar

import (
	"fmt"
	"time"
)

// Layout is the date format used on the command line and in page titles.
const Layout = "2006-01-02"

// Window is an inclusive range of calendar days.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) String() string {
	return fmt.Sprintf("%s to %s", w.Start.Format(Layout), w.End.Format(Layout))
}

// Contains reports whether day falls inside the window.
func (w Window) Contains(day time.Time) bool {
	d := Day(day, w.Start.Location())
	return !d.Before(w.Start) && !d.After(w.End)
}

// Day truncates t to midnight in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Parse reads a YYYY-MM-DD string as a day in loc.
func Parse(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// PreviousDay is the day before now in loc, the default daily target.
func PreviousDay(now time.Time, loc *time.Location) time.Time {
	return Day(now, loc).AddDate(0, 0, -1)
}

// Week returns the Monday-to-Sunday window containing day.
func Week(day time.Time, loc *time.Location) Window {
	d := Day(day, loc)
	offset := (int(d.Weekday()) + 6) % 7
	start := d.AddDate(0, 0, -offset)
	return Window{Start: start, End: start.AddDate(0, 0, 6)}
}

// Month returns the window from the 1st to the last day of day's month.
func Month(day time.Time, loc *time.Location) Window {
	d := Day(day, loc)
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, -1)}
}

// IsLastDayOfMonth reports whether day is the final day of its month.
func IsLastDayOfMonth(day time.Time, loc *time.Location) bool {
	d := Day(day, loc)
	return d.AddDate(0, 0, 1).Month() != d.Month()
}
