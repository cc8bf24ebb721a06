// Sitelens - Visitor Telemetry and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sitelens

package analytics

import (
	"strings"
	"time"
)

// Window is a named lookback period ending at the query time.
type Window string

const (
	Window7Days    Window = "7d"
	Window30Days   Window = "30d"
	Window90Days   Window = "90d"
	Window6Months  Window = "6m"
	Window12Months Window = "12m"

	// DefaultWindow is used when the requested window is missing or unknown.
	DefaultWindow = Window30Days
)

// Granularity is the width of one series bucket.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// Windows lists the supported windows, shortest first.
var Windows = []Window{Window7Days, Window30Days, Window90Days, Window6Months, Window12Months}

// ParseWindow maps a query parameter to a Window. Unknown values fall back to
// DefaultWindow; they are never an error.
func ParseWindow(s string) Window {
	w := Window(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Windows {
		if w == known {
			return w
		}
	}
	return DefaultWindow
}

// Granularity returns the bucket width used for the window's series:
// days up to 30 days, weeks for 90 days, months beyond that.
func (w Window) Granularity() Granularity {
	switch w {
	case Window7Days, Window30Days:
		return Day
	case Window90Days:
		return Week
	case Window6Months, Window12Months:
		return Month
	default:
		return DefaultWindow.Granularity()
	}
}

// Range returns the window's [start, end] for the given query time. The start
// is aligned to the first bucket boundary so that the series covers a whole
// number of buckets, the last one containing now.
func (w Window) Range(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	today := truncateDay(now)

	var start time.Time
	switch ParseWindow(string(w)) {
	case Window7Days:
		start = today.AddDate(0, 0, -6)
	case Window30Days:
		start = today.AddDate(0, 0, -29)
	case Window90Days:
		start = truncateWeek(today.AddDate(0, 0, -89))
	case Window6Months:
		start = truncateMonth(now).AddDate(0, -5, 0)
	case Window12Months:
		start = truncateMonth(now).AddDate(0, -11, 0)
	}
	return start, now
}

// BucketStart returns the start of the bucket containing t.
func (g Granularity) BucketStart(t time.Time) time.Time {
	switch g {
	case Week:
		return truncateWeek(t)
	case Month:
		return truncateMonth(t)
	default:
		return truncateDay(t)
	}
}

// Next returns the start of the bucket after the one starting at t.
func (g Granularity) Next(t time.Time) time.Time {
	switch g {
	case Week:
		return t.AddDate(0, 0, 7)
	case Month:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// Label formats a bucket start for display.
func (g Granularity) Label(t time.Time) string {
	if g == Month {
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// truncateWeek returns the Monday starting t's ISO week.
func truncateWeek(t time.Time) time.Time {
	d := truncateDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func truncateMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
