package format

import (
	"strings"

	"github.com/iwvelando/remaining-value/pkg/constants"
	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes reference-currency amounts.
const CurrencySymbol = "￥"

// Currency returns a currency string with a yuan sign and thousands separators (e.g., "-￥1,234.56").
func Currency(amount decimal.Decimal) string {
	formatted := formatPositiveCurrency(amount.Abs())
	if amount.Round(constants.DecimalPlaces).IsNegative() {
		return "-" + CurrencySymbol + formatted
	}
	return CurrencySymbol + formatted
}

// Fixed returns the amount with exactly two decimals and no separators (e.g., "-1234.56").
func Fixed(amount decimal.Decimal) string {
	return amount.StringFixed(constants.DecimalPlaces)
}

// Percent returns a two-decimal percentage (e.g., "141.99%").
func Percent(percent decimal.Decimal) string {
	return Fixed(percent) + "%"
}

func formatPositiveCurrency(value decimal.Decimal) string {
	formatted := value.StringFixed(constants.DecimalPlaces)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return intPart + "." + decPart
}
