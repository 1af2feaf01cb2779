// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package date_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"storj.io/stroll/internal/date"
)

func TestDayBoundary(t *testing.T) {
	now := time.Now().UTC()

	start, end := date.DayBoundary(now)
	assert.Equal(t, start, time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC))
	assert.Equal(t, end, time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, -1, time.UTC))
}

func TestIsWeekend(t *testing.T) {
	saturday := time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC)
	assert.True(t, date.IsWeekend(saturday))
	assert.True(t, date.IsWeekend(saturday.AddDate(0, 0, 1)))
	assert.False(t, date.IsWeekend(saturday.AddDate(0, 0, 2)))
}

func TestNextWeekday(t *testing.T) {
	saturday := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, date.NextWeekday(saturday))
	assert.Equal(t, monday, date.NextWeekday(monday))
}

func TestWeekdaysBetween(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // Monday
	to := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)   // Sunday
	assert.Equal(t, 5, date.WeekdaysBetween(from, to))
	assert.Equal(t, 1, date.WeekdaysBetween(from, from))
}
