// Package validation provides common validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/remaining-value/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	switch format {
	case constants.OutputFormatPretty, constants.OutputFormatMarkdown, constants.OutputFormatJSON:
		return nil
	}
	return fmt.Errorf("expected output format of %s, %s or %s, got %s",
		constants.OutputFormatPretty, constants.OutputFormatMarkdown, constants.OutputFormatJSON, format)
}

// ValidateCurrencyCode checks that code looks like an ISO 4217 code: three
// upper-case ASCII letters.
func ValidateCurrencyCode(code string) error {
	if len(code) != 3 {
		return fmt.Errorf("currency code %q must be three letters", code)
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return fmt.Errorf("currency code %q must be upper-case letters", code)
		}
	}
	return nil
}
