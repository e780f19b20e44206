// Package valuation computes the prorated remaining value of a prepaid service
// and the premium a buyer would pay for it at a proposed trade price.
package valuation

import (
	"cloud.google.com/go/civil"
	"github.com/iwvelando/remaining-value/pkg/datetime"
	"github.com/iwvelando/remaining-value/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// BillingPeriod is the renewal cadence the purchase price is amortized over.
type BillingPeriod string

const (
	Monthly     BillingPeriod = "monthly"
	Quarterly   BillingPeriod = "quarterly"
	HalfYearly  BillingPeriod = "halfyearly"
	Yearly      BillingPeriod = "yearly"
	TwoYearly   BillingPeriod = "two-yearly"
	ThreeYearly BillingPeriod = "three-yearly"
	FiveYearly  BillingPeriod = "five-yearly"
)

// DefaultBillingPeriod is used when a period is not recognized.
const DefaultBillingPeriod = Yearly

// BillingPeriods lists the known periods from shortest to longest.
var BillingPeriods = []BillingPeriod{Monthly, Quarterly, HalfYearly, Yearly, TwoYearly, ThreeYearly, FiveYearly}

var periodLengths = map[BillingPeriod]decimal.Decimal{
	Monthly:     decimal.RequireFromString("30.44"),
	Quarterly:   decimal.RequireFromString("91.25"),
	HalfYearly:  decimal.RequireFromString("182.5"),
	Yearly:      decimal.NewFromInt(365),
	TwoYearly:   decimal.NewFromInt(730),
	ThreeYearly: decimal.NewFromInt(1095),
	FiveYearly:  decimal.NewFromInt(1825),
}

// Known reports whether p is one of the listed billing periods.
func (p BillingPeriod) Known() bool {
	_, ok := periodLengths[p]
	return ok
}

// PeriodLength returns the length of p in days. Unrecognized periods fall back
// to a year.
func PeriodLength(p BillingPeriod) decimal.Decimal {
	if length, ok := periodLengths[p]; ok {
		return length
	}
	return periodLengths[DefaultBillingPeriod]
}

// Input holds one calculation's normalized values.
type Input struct {
	PurchaseAmount decimal.Decimal
	PurchaseRate   decimal.Decimal
	TradeAmount    decimal.Decimal
	TradeRate      decimal.Decimal
	CurrentDate    civil.Date
	ExpiryDate     civil.Date
	BillingPeriod  BillingPeriod
}

// Result is the outcome of Evaluate. All amounts are in the reference currency.
type Result struct {
	RemainingDays     int             `json:"remainingDays"`
	PeriodLengthDays  decimal.Decimal `json:"periodLengthDays"`
	BillingPeriod     BillingPeriod   `json:"billingPeriod"`
	PurchaseAmountRef decimal.Decimal `json:"purchaseAmountRef"`
	TradeAmountRef    decimal.Decimal `json:"tradeAmountRef"`
	RemainingValueRef decimal.Decimal `json:"remainingValueRef"`
	PremiumRef        decimal.Decimal `json:"premiumRef"`
	PremiumPercent    decimal.Decimal `json:"premiumPercent"`
	Recommendation    Tier            `json:"recommendation"`
}

// PremiumPercentRounded is the premium percentage rounded for display.
func (r Result) PremiumPercentRounded() decimal.Decimal {
	return mathutil.Round(r.PremiumPercent)
}

// Breakdown splits RemainingDays into 30-day months and leftover days.
func (r Result) Breakdown() (months int, days int) {
	return datetime.Breakdown(r.RemainingDays)
}
