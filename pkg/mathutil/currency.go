// Package mathutil provides common decimal utility functions.
package mathutil

import (
	"github.com/iwvelando/remaining-value/pkg/constants"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(constants.PercentageMultiplier)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Only used for display; comparisons run on the unrounded value.
func Round(val decimal.Decimal) decimal.Decimal {
	return val.Round(constants.DecimalPlaces)
}

// CalculatePercentage calculates what percentage value is of total.
// A zero total yields exactly zero instead of an undefined ratio.
func CalculatePercentage(value, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return value.Div(total).Mul(hundred)
}
