package services

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format accepted by list and export filters
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC
func ParseDate(dateStr string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(dateStr))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", dateStr)
	}
	return parsed, nil
}

// EndOfDay returns the last instant of the day that starts at t
func EndOfDay(t time.Time) time.Time {
	return t.Add(24*time.Hour - time.Nanosecond)
}
