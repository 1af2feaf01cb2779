// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package date contains various date-related utilities.
package date

import "time"

// DayBoundary returns the start and end of the day for the given time in UTC.
func DayBoundary(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, -1, time.UTC)
}

// IsWeekend reports whether the given day is a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	switch t.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return true
	}
	return false
}

// NextWeekday returns t if it falls on a weekday, otherwise the following
// Monday.
func NextWeekday(t time.Time) time.Time {
	for IsWeekend(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// WeekdaysBetween counts weekdays in the inclusive range [from, to].
func WeekdaysBetween(from, to time.Time) int {
	from, _ = DayBoundary(from)
	to, _ = DayBoundary(to)
	count := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !IsWeekend(d) {
			count++
		}
	}
	return count
}
