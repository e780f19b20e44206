package valuation

import (
	"github.com/iwvelando/remaining-value/pkg/datetime"
	"github.com/iwvelando/remaining-value/pkg/mathutil"
	"github.com/shopspring/decimal"
)

// Evaluate validates in and computes the remaining value, premium and
// recommendation. It has no side effects and is safe to call concurrently.
func Evaluate(in Input) (Result, error) {
	if !in.PurchaseRate.IsPositive() {
		return Result{}, fieldError(FieldPurchaseRate, ErrInvalidRate)
	}
	if !in.TradeRate.IsPositive() {
		return Result{}, fieldError(FieldTradeRate, ErrInvalidRate)
	}
	if in.PurchaseAmount.IsNegative() {
		return Result{}, fieldError(FieldPurchaseAmount, ErrInvalidAmount)
	}
	if in.TradeAmount.IsNegative() {
		return Result{}, fieldError(FieldTradeAmount, ErrInvalidAmount)
	}
	if !in.CurrentDate.IsValid() {
		return Result{}, fieldError(FieldCurrentDate, ErrInvalidDate)
	}
	if !in.ExpiryDate.IsValid() {
		return Result{}, fieldError(FieldExpiryDate, ErrInvalidDate)
	}

	remainingDays := datetime.DaysBetween(in.CurrentDate, in.ExpiryDate)
	if remainingDays <= 0 {
		return Result{}, fieldError(FieldExpiryDate, ErrExpiryNotAfterCurrent)
	}

	purchaseRef := in.PurchaseAmount.Mul(in.PurchaseRate)
	tradeRef := in.TradeAmount.Mul(in.TradeRate)

	periodLength := PeriodLength(in.BillingPeriod)
	remainingValue := purchaseRef.Div(periodLength).Mul(decimal.NewFromInt(int64(remainingDays)))
	premium := tradeRef.Sub(remainingValue)
	premiumPercent := mathutil.CalculatePercentage(premium, remainingValue)

	return Result{
		RemainingDays:     remainingDays,
		PeriodLengthDays:  periodLength,
		BillingPeriod:     in.BillingPeriod,
		PurchaseAmountRef: purchaseRef,
		TradeAmountRef:    tradeRef,
		RemainingValueRef: remainingValue,
		PremiumRef:        premium,
		PremiumPercent:    premiumPercent,
		Recommendation:    Recommend(premiumPercent),
	}, nil
}
