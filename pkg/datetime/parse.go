// Package datetime provides calendar date utility functions.
package datetime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/iwvelando/remaining-value/pkg/constants"
)

const (
	// DateLayout is the format expected on input and is also the output
	// date format.
	DateLayout = constants.DateLayout
)

// ErrInvalidDate is returned when a string is not an exact calendar date.
var ErrInvalidDate = errors.New("invalid calendar date")

// ParseDate strictly parses a YYYY-MM-DD string. Dates that would overflow
// into the next month (e.g. 2026-02-31) are rejected rather than normalized, and
// the parsed date must format back to exactly the input text.
func ParseDate(value string) (civil.Date, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return civil.Date{}, fmt.Errorf("%w: empty value", ErrInvalidDate)
	}

	d, err := civil.ParseDate(trimmed)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	if !d.IsValid() || d.String() != trimmed {
		return civil.Date{}, fmt.Errorf("%w: %q does not round-trip", ErrInvalidDate, value)
	}
	return d, nil
}

// MustParseDate parses a date string and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseDate(value string) civil.Date {
	d, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return d
}

// Today returns the calendar date of now in now's own location.
func Today(now time.Time) civil.Date {
	return civil.DateOf(now)
}

// DaysBetween returns the number of whole days from start to end. The result is
// negative when end is before start.
func DaysBetween(start, end civil.Date) int {
	return end.DaysSince(start)
}

// Breakdown splits a day count into fixed 30-day "months" and leftover days.
// It is a display convenience and not a calendar-accurate month count.
func Breakdown(days int) (months int, rest int) {
	return days / constants.DisplayMonthDays, days % constants.DisplayMonthDays
}
