// Package core provides the receipt domain types and display formatting.
//
// Monetary values arrive from the server as decimal numbers and are never
// recomputed here: formatting to two fraction digits is the only operation
// the client performs on them.
package core

import (
	"strconv"
	"time"
)

// FormatAmount renders a monetary value with two fraction digits for display
// (e.g. "12.40"). No currency arithmetic happens client-side.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ParseDate parses an ISO-8601 date or datetime string as transmitted by the
// server. Date-only strings (YYYY-MM-DD) are accepted too.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// FormatDate renders a calendar date for display.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}
