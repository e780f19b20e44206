// Package testutil provides common utility functions for testing.
package testutil

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/iwvelando/remaining-value/pkg/datetime"
	"github.com/shopspring/decimal"
)

// MustDecimal parses a decimal literal and fails the test on error.
func MustDecimal(t testing.TB, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", value, err)
	}
	return d
}

// MustDate parses a YYYY-MM-DD date and fails the test on error.
func MustDate(t testing.TB, value string) civil.Date {
	t.Helper()
	d, err := datetime.ParseDate(value)
	if err != nil {
		t.Fatalf("invalid date %q: %v", value, err)
	}
	return d
}

// AssertClose fails the test if got and want differ by more than tol.
func AssertClose(t testing.TB, name string, got, want decimal.Decimal, tol string) {
	t.Helper()
	if got.Sub(want).Abs().GreaterThan(decimal.RequireFromString(tol)) {
		t.Errorf("%s = %s, expected %s (±%s)", name, got, want, tol)
	}
}
