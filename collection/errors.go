/*
errors.go - Error taxonomy for the collection ledger

ERROR CATEGORIES:
  1. Validation errors - Business rule violations, always recoverable locally.
     Returned as *ValidationError carrying a Code; each code has a sentinel
     so callers can use errors.Is.
  2. Lookup errors - ErrNotFound, returned by stores and the ledger service.

USAGE:
  store, err := collection.SetQuantity(store, itemID, 5, today)
  if errors.Is(err, collection.ErrQuantityExceedsAvailable) {
      // tell the user, keep the old store
  }
*/
package collection

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a debt record or product does not exist.
	ErrNotFound = errors.New("not found")

	ErrQuantityBelowBaseline    = errors.New("quantity below baseline")
	ErrQuantityExceedsAvailable = errors.New("quantity exceeds available inventory")
	ErrItemLocked               = errors.New("item has returns and cannot be edited")
	ErrPeriodLocked             = errors.New("period is not editable")
	ErrNegativePrice            = errors.New("price cannot be negative")
	ErrNothingToSubmit          = errors.New("nothing to submit")
	ErrItemNotFound             = errors.New("item not found")
)

// =============================================================================
// VALIDATION ERROR
// =============================================================================

type ValidationCode string

const (
	CodeQuantityBelowBaseline    ValidationCode = "quantity_below_baseline"
	CodeQuantityExceedsAvailable ValidationCode = "quantity_exceeds_available"
	CodeItemLocked               ValidationCode = "item_locked"
	CodePeriodLocked             ValidationCode = "period_locked"
	CodeNegativePrice            ValidationCode = "negative_price"
	CodeNothingToSubmit          ValidationCode = "nothing_to_submit"
	CodeItemNotFound             ValidationCode = "item_not_found"
)

var sentinels = map[ValidationCode]error{
	CodeQuantityBelowBaseline:    ErrQuantityBelowBaseline,
	CodeQuantityExceedsAvailable: ErrQuantityExceedsAvailable,
	CodeItemLocked:               ErrItemLocked,
	CodePeriodLocked:             ErrPeriodLocked,
	CodeNegativePrice:            ErrNegativePrice,
	CodeNothingToSubmit:          ErrNothingToSubmit,
	CodeItemNotFound:             ErrItemNotFound,
}

// ValidationError is a rejected engine call. The Store passed to the call is
// left untouched.
type ValidationError struct {
	Code    ValidationCode
	ItemID  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.ItemID == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (item %s)", e.Code, e.Message, e.ItemID)
}

func (e *ValidationError) Unwrap() error {
	return sentinels[e.Code]
}

func invalid(code ValidationCode, itemID, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, ItemID: itemID, Message: fmt.Sprintf(format, args...)}
}

// IsValidation returns true if err is a business rule violation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
