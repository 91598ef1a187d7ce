package model

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidMonthYear = errors.New("month_year must use the mm/yyyy format")

// MonthWindow is the half-open interval [Start, End) covering one calendar month in UTC.
type MonthWindow struct {
	Start time.Time
	End   time.Time
}

// ParseMonthYear parses "mm/yyyy" (a single-digit month is accepted) into its month window.
func ParseMonthYear(s string) (MonthWindow, error) {
	monthStr, yearStr, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || len(monthStr) == 0 || len(monthStr) > 2 || len(yearStr) != 4 {
		return MonthWindow{}, ErrInvalidMonthYear
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return MonthWindow{}, ErrInvalidMonthYear
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1 {
		return MonthWindow{}, ErrInvalidMonthYear
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return MonthWindow{Start: start, End: start.AddDate(0, 1, 0)}, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate accepts a calendar date, a local datetime or an RFC 3339
// timestamp. Values without an offset are taken as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("date must be YYYY-MM-DD or an RFC 3339 timestamp")
}
