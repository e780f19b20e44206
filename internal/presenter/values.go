// Package presenter turns raw form values into valuation inputs and keeps the
// state of one calculation session.
package presenter

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/iwvelando/remaining-value/internal/rates"
	"github.com/iwvelando/remaining-value/internal/valuation"
	"github.com/iwvelando/remaining-value/pkg/constants"
	"github.com/iwvelando/remaining-value/pkg/datetime"
	"github.com/shopspring/decimal"
)

// Values are the raw, unvalidated form fields. Rates are optional when the
// currency can be looked up in a snapshot.
type Values struct {
	PurchaseCurrency string `json:"purchaseCurrency" yaml:"purchaseCurrency"`
	PurchaseAmount   string `json:"purchaseAmount" yaml:"purchaseAmount"`
	PurchaseRate     string `json:"purchaseRate,omitempty" yaml:"purchaseRate,omitempty"`
	TradeCurrency    string `json:"tradeCurrency" yaml:"tradeCurrency"`
	TradeAmount      string `json:"tradeAmount" yaml:"tradeAmount"`
	TradeRate        string `json:"tradeRate,omitempty" yaml:"tradeRate,omitempty"`
	CurrentDate      string `json:"currentDate,omitempty" yaml:"currentDate,omitempty"`
	ExpiryDate       string `json:"expiryDate" yaml:"expiryDate"`
	BillingPeriod    string `json:"billingPeriod,omitempty" yaml:"billingPeriod,omitempty"`
}

// Notice kinds.
const (
	NoticeRateLookupMiss = "rate-lookup-miss"
	NoticeUnknownPeriod  = "unknown-billing-period"
)

// Bounds on parsed amounts and rates. Values outside them are rejected before
// any arithmetic.
const (
	maxIntegerDigits = 15
	minExponent      = -20
)

// Notice is a non-fatal message about a field.
type Notice struct {
	Field   string `json:"field"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Parse validates values into an Input. An explicitly entered rate is used as
// is; otherwise the rate comes from snap. A currency missing from snap yields a
// notice, and an error when no manual rate was given either. An empty current
// date means today.
func Parse(values Values, snap *rates.Snapshot, today civil.Date) (valuation.Input, []Notice, error) {
	var notices []Notice

	purchaseRate, notice, err := resolveRate(values.PurchaseCurrency, values.PurchaseRate, snap, valuation.FieldPurchaseRate)
	notices = appendNotice(notices, notice)
	if err != nil {
		return valuation.Input{}, notices, err
	}
	tradeRate, notice, err := resolveRate(values.TradeCurrency, values.TradeRate, snap, valuation.FieldTradeRate)
	notices = appendNotice(notices, notice)
	if err != nil {
		return valuation.Input{}, notices, err
	}

	purchaseAmount, err := parseAmount(values.PurchaseAmount, valuation.FieldPurchaseAmount)
	if err != nil {
		return valuation.Input{}, notices, err
	}
	tradeAmount, err := parseAmount(values.TradeAmount, valuation.FieldTradeAmount)
	if err != nil {
		return valuation.Input{}, notices, err
	}

	current := today
	if strings.TrimSpace(values.CurrentDate) != "" {
		current, err = parseDate(values.CurrentDate, valuation.FieldCurrentDate)
		if err != nil {
			return valuation.Input{}, notices, err
		}
	}
	expiry, err := parseDate(values.ExpiryDate, valuation.FieldExpiryDate)
	if err != nil {
		return valuation.Input{}, notices, err
	}

	period := valuation.BillingPeriod(strings.ToLower(strings.TrimSpace(values.BillingPeriod)))
	if period == "" {
		period = valuation.DefaultBillingPeriod
	}
	if !period.Known() {
		notices = append(notices, Notice{
			Field:   valuation.FieldBillingPeriod,
			Kind:    NoticeUnknownPeriod,
			Message: fmt.Sprintf("unknown billing period %q, using %s", values.BillingPeriod, valuation.DefaultBillingPeriod),
		})
	}

	return valuation.Input{
		PurchaseAmount: purchaseAmount,
		PurchaseRate:   purchaseRate,
		TradeAmount:    tradeAmount,
		TradeRate:      tradeRate,
		CurrentDate:    current,
		ExpiryDate:     expiry,
		BillingPeriod:  period,
	}, notices, nil
}

func appendNotice(notices []Notice, n *Notice) []Notice {
	if n == nil {
		return notices
	}
	return append(notices, *n)
}

func resolveRate(currency, manual string, snap *rates.Snapshot, field string) (decimal.Decimal, *Notice, error) {
	if strings.TrimSpace(manual) != "" {
		rate, ok := parseDecimal(manual)
		if !ok {
			return decimal.Zero, nil, &valuation.FieldError{Field: field, Err: valuation.ErrInvalidRate}
		}
		return rate, nil, nil
	}

	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = constants.ReferenceCurrency
	}
	if code == constants.ReferenceCurrency {
		return decimal.NewFromInt(1), nil, nil
	}

	var lookup rates.Snapshot
	if snap != nil {
		lookup = *snap
	}
	rate, err := lookup.Lookup(code)
	if err == nil {
		return rate, nil, nil
	}

	notice := &Notice{
		Field:   field,
		Kind:    NoticeRateLookupMiss,
		Message: fmt.Sprintf("no exchange rate for %s, enter the rate manually", code),
	}
	return decimal.Zero, notice, &valuation.FieldError{Field: field, Err: valuation.ErrInvalidRate}
}

// parseDecimal parses a form number. It reports false for malformed input and
// for magnitudes beyond maxIntegerDigits integer digits or finer than
// 10^minExponent.
func parseDecimal(raw string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, false
	}
	if d.Exponent() < minExponent || d.NumDigits()+int(d.Exponent()) > maxIntegerDigits {
		return decimal.Zero, false
	}
	return d, true
}

func parseAmount(raw, field string) (decimal.Decimal, error) {
	amount, ok := parseDecimal(raw)
	if !ok {
		return decimal.Zero, &valuation.FieldError{Field: field, Err: valuation.ErrInvalidAmount}
	}
	return amount, nil
}

func parseDate(raw, field string) (civil.Date, error) {
	d, err := datetime.ParseDate(raw)
	if err != nil {
		return civil.Date{}, &valuation.FieldError{Field: field, Err: valuation.ErrInvalidDate}
	}
	return d, nil
}
