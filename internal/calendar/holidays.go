// Package calendar computes US retail holidays and per-date holiday features.
package calendar

import (
	"sort"
	"time"
)

type fixedHoliday struct {
	month time.Month
	day   int
	name  string
}

// floatingHoliday is the nth weekday of a month; n == -1 means the last one.
type floatingHoliday struct {
	name    string
	month   time.Month
	n       int
	weekday time.Weekday
}

var fixedHolidays = []fixedHoliday{
	{time.January, 1, "New Year's Day"},
	{time.July, 4, "Independence Day"},
	{time.December, 25, "Christmas Day"},
	{time.November, 11, "Veterans Day"},
	{time.December, 31, "New Year's Eve"},
}

var floatingHolidays = []floatingHoliday{
	{"Martin Luther King Jr. Day", time.January, 3, time.Monday},
	{"Presidents Day", time.February, 3, time.Monday},
	{"Memorial Day", time.May, -1, time.Monday},
	{"Labor Day", time.September, 1, time.Monday},
	{"Thanksgiving", time.November, 4, time.Thursday},
}

const blackFriday = "Black Friday"

// Flag holds the holiday features of a single date.
type Flag struct {
	IsHoliday       bool
	HolidayName     string
	DaysToHoliday   int
	DaysFromHoliday int
}

// Date truncates t to a UTC calendar day.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NthWeekday resolves the nth weekday of a month. For n > 0 it counts forward
// from the first occurrence; for n == -1 it searches backward from month end.
// ok is false when the occurrence falls outside the month.
func NthWeekday(year int, month time.Month, weekday time.Weekday, n int) (time.Time, bool) {
	if n > 0 {
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		offset := (int(weekday) - int(first.Weekday()) + 7) % 7
		day := 1 + offset + (n-1)*7
		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if d.Month() != month {
			return time.Time{}, false
		}
		return d, true
	}
	if n == -1 {
		last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
		back := (int(last.Weekday()) - int(weekday) + 7) % 7
		return last.AddDate(0, 0, -back), true
	}
	return time.Time{}, false
}

// HolidaysForYear returns the fixed and floating holidays of a year keyed by date.
// Floating rules that cannot be resolved are omitted.
func HolidaysForYear(year int) map[time.Time]string {
	holidays := make(map[time.Time]string, len(fixedHolidays)+len(floatingHolidays)+1)
	for _, h := range fixedHolidays {
		holidays[time.Date(year, h.month, h.day, 0, 0, 0, 0, time.UTC)] = h.name
	}
	for _, h := range floatingHolidays {
		if d, ok := NthWeekday(year, h.month, h.weekday, h.n); ok {
			holidays[d] = h.name
		}
	}
	// Black Friday follows Thanksgiving, which is not always the fourth Friday.
	if d, ok := NthWeekday(year, time.November, time.Thursday, 4); ok {
		holidays[d.AddDate(0, 0, 1)] = blackFriday
	}
	return holidays
}

// Flags computes holiday features for each date using the holidays of every
// year present in dates. Distances are 0 when no holiday exists on that side.
func Flags(dates []time.Time) []Flag {
	holidays := make(map[time.Time]string)
	seen := make(map[int]bool)
	for _, d := range dates {
		if y := d.Year(); !seen[y] {
			seen[y] = true
			for day, name := range HolidaysForYear(y) {
				holidays[day] = name
			}
		}
	}

	sorted := make([]time.Time, 0, len(holidays))
	for day := range holidays {
		sorted = append(sorted, day)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	flags := make([]Flag, len(dates))
	for i, d := range dates {
		day := Date(d)
		f := Flag{}
		if name, ok := holidays[day]; ok {
			f.IsHoliday = true
			f.HolidayName = name
		}
		for _, h := range sorted {
			if h.After(day) {
				f.DaysToHoliday = daysBetween(day, h)
				break
			}
		}
		for j := len(sorted) - 1; j >= 0; j-- {
			if sorted[j].Before(day) {
				f.DaysFromHoliday = daysBetween(sorted[j], day)
				break
			}
		}
		flags[i] = f
	}
	return flags
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
