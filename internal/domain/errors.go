package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrSaleNotFound          = errors.New("sale not found")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrSupplierNotFound      = errors.New("supplier not found")
	ErrPurchaseOrderNotFound = errors.New("purchase order not found")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrInvalidAdjustment     = errors.New("invalid adjustment type")
	ErrMissingTransactionID  = errors.New("transaction id required for mpesa and card payments")
	ErrValidation            = errors.New("validation failed")
	ErrForbidden             = errors.New("permission denied")
)

type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Invalid(field string, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// PersistenceError wraps a store failure. The enclosing transaction has
// already been rolled back when one is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: persistence failure: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsBusinessError reports whether err is one of the rule violations that are
// detected before any write.
func IsBusinessError(err error) bool {
	for _, target := range []error{
		ErrProductNotFound, ErrSaleNotFound, ErrPaymentNotFound, ErrSupplierNotFound,
		ErrPurchaseOrderNotFound, ErrInsufficientStock, ErrInvalidAdjustment,
		ErrMissingTransactionID, ErrValidation, ErrForbidden,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
