package valuation

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRate           = errors.New("exchange rate must be greater than zero")
	ErrInvalidAmount         = errors.New("amount must not be negative")
	ErrInvalidDate           = errors.New("invalid calendar date")
	ErrExpiryNotAfterCurrent = errors.New("expiry date must be after the current date")
)

// Field names used in FieldError; they match the form field names.
const (
	FieldPurchaseAmount = "purchaseAmount"
	FieldPurchaseRate   = "purchaseRate"
	FieldTradeAmount    = "tradeAmount"
	FieldTradeRate      = "tradeRate"
	FieldCurrentDate    = "currentDate"
	FieldExpiryDate     = "expiryDate"
	FieldBillingPeriod  = "billingPeriod"
)

// FieldError ties a validation failure to the input field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldError(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}
