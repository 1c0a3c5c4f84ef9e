package service

import (
	"errors"
	"fmt"
)

var ErrValidation = errors.New("validation failed")

var (
	ErrNoItems             = errors.New("order has no items")
	ErrMissingCustomerInfo = errors.New("customer name, email and whatsapp number are required")
	ErrUnknownProduct      = errors.New("unknown product")
	ErrInvalidReceipt      = errors.New("invalid payment receipt")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidDuration     = errors.New("duration not available for product")
	ErrInvalidQuantity     = errors.New("quantity must be between 1 and 10")
	ErrProductUnavailable  = errors.New("product is not available")

	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrProductInUse      = errors.New("product is referenced by orders")
	ErrUserNotFound      = errors.New("user not found")
	ErrOrderAccessDenied = errors.New("access denied")
	ErrInvalidAction     = errors.New("action must be approve or reject")
	ErrInvalidTransition = errors.New("order status does not allow this action")
	ErrInvalidOAuthState = errors.New("invalid oauth state")
)

// ValidationError carries a client-facing message for a rejected request.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Err.Error())
}

func (e *ValidationError) Unwrap() []error { return []error{ErrValidation, e.Err} }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}
