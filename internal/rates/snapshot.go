// Package rates supplies currency to reference-currency exchange rates.
package rates

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/iwvelando/remaining-value/pkg/constants"
	"github.com/shopspring/decimal"
)

// ErrRateLookupMiss is returned when a snapshot has no usable rate for a
// currency. Callers fall back to a manually entered rate.
var ErrRateLookupMiss = errors.New("no exchange rate for currency")

// Snapshot is one fetch of exchange rates. Date is an opaque label taken from
// the data source; Rates maps a currency code to its value in the reference
// currency.
type Snapshot struct {
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Decode reads a {"date": ..., "rates": {...}} document.
func Decode(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode exchange rates: %w", err)
	}
	return snap.normalized(), nil
}

// Lookup returns the rate for code. The reference currency is always 1.
func (s Snapshot) Lookup(code string) (decimal.Decimal, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == constants.ReferenceCurrency {
		return decimal.NewFromInt(1), nil
	}
	rate, ok := s.Rates[code]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrRateLookupMiss, code)
	}
	return rate, nil
}

// Currencies lists the codes with a rate, reference currency included, sorted.
func (s Snapshot) Currencies() []string {
	codes := []string{constants.ReferenceCurrency}
	for code := range s.Rates {
		if code != constants.ReferenceCurrency {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes[1:])
	return codes
}

func (s Snapshot) normalized() Snapshot {
	out := Snapshot{Date: strings.TrimSpace(s.Date), Rates: make(map[string]decimal.Decimal, len(s.Rates))}
	for code, rate := range s.Rates {
		out.Rates[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return out
}
