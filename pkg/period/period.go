package period

import (
	"fmt"
	"strings"
	"time"
)

// Period is a named recurrence granularity used to align budget windows.
type Period string

const (
	Weekly    Period = "weekly"
	Monthly   Period = "monthly"
	Quarterly Period = "quarterly"
	Yearly    Period = "yearly"
)

// Parse returns the Period matching s (case-insensitive).
func Parse(s string) (Period, error) {
	switch Period(strings.ToLower(s)) {
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	case Quarterly:
		return Quarterly, nil
	case Yearly:
		return Yearly, nil
	}
	return "", fmt.Errorf("invalid period: %q", s)
}

// Range is a calendar-aligned interval, inclusive at both ends.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the range, boundaries included.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Resolve maps a period and a reference date to the calendar-aligned interval
// containing the reference date. Weeks start on weekStart (the user setting;
// Monday for an ISO week). The interval never crosses into an adjacent
// calendar unit; month lengths and leap years come out of time.Date
// normalization, not hardcoded day counts.
func Resolve(p Period, ref time.Time, weekStart time.Weekday) Range {
	loc := ref.Location()
	year, month, day := ref.Date()

	switch p {
	case Weekly:
		back := (int(ref.Weekday()) - int(weekStart) + 7) % 7
		start := time.Date(year, month, day-back, 0, 0, 0, 0, loc)
		return Range{Start: start, End: start.AddDate(0, 0, 7).Add(-time.Nanosecond)}
	case Quarterly:
		quarterStart := time.Month((int(month)-1)/3*3 + 1)
		start := time.Date(year, quarterStart, 1, 0, 0, 0, 0, loc)
		return Range{Start: start, End: start.AddDate(0, 3, 0).Add(-time.Nanosecond)}
	case Yearly:
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		return Range{Start: start, End: start.AddDate(1, 0, 0).Add(-time.Nanosecond)}
	case Monthly:
		fallthrough
	default:
		start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		return Range{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
	}
}

// Month returns the calendar month interval for the given year and month.
func Month(year int, month time.Month, loc *time.Location) Range {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return Range{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}
}

// Year returns the calendar year interval.
func Year(year int, loc *time.Location) Range {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return Range{Start: start, End: start.AddDate(1, 0, 0).Add(-time.Nanosecond)}
}

// LastMonths is the lookback variant used for trend series: it returns one
// range per calendar month, oldest first, starting months back from now and
// ending with the month containing now.
func LastMonths(months int, now time.Time) []Range {
	loc := now.Location()
	year, month, _ := now.Date()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc).AddDate(0, -months, 0)

	ranges := make([]Range, 0, months+1)
	for start := first; !start.After(now); start = start.AddDate(0, 1, 0) {
		ranges = append(ranges, Range{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)})
	}
	return ranges
}

// Label renders the display name of the interval starting at start,
// matching the granularity of p ("January 2006", "Q1 2006", ...).
func Label(p Period, start time.Time) string {
	switch p {
	case Weekly:
		end := start.AddDate(0, 0, 6)
		return fmt.Sprintf("%s - %s", start.Format("Jan 2"), end.Format("Jan 2, 2006"))
	case Quarterly:
		return fmt.Sprintf("Q%d %d", (int(start.Month())-1)/3+1, start.Year())
	case Yearly:
		return start.Format("2006")
	default:
		return start.Format("January 2006")
	}
}

// ShortMonthLabel renders a month interval start the way trend series name
// their points ("Jan 2006").
func ShortMonthLabel(start time.Time) string {
	return start.Format("Jan 2006")
}
