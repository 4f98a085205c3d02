// Calendar-day arithmetic. All check-in and streak comparisons operate on
// midnight-truncated UTC dates; these helpers are the single place where
// that truncation and the Mon=1..Sun=7 weekday convention live.
package domain

import "time"

// DateOf truncates t to midnight UTC, the canonical representation of a
// calendar day throughout the data model.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekdayIndex returns the ISO weekday index of t: Monday=1 .. Sunday=7.
func WeekdayIndex(t time.Time) int {
	wd := int(t.Weekday()) // Sunday=0 .. Saturday=6
	if wd == 0 {
		return 7
	}
	return wd
}

// DaysBetween returns the whole-day difference to - from, both truncated to
// midnight first. The result is negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	a := DateOf(from)
	b := DateOf(to)
	return int(b.Sub(a).Hours() / 24)
}
