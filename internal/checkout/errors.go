package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/safar/storefront/internal/database"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// ValidationError maps each offending request field to a message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// StockExhaustedError reports the first line whose stock ran out. The whole
// order is rolled back when it is returned.
type StockExhaustedError struct {
	ProductID int64
	VariantID *int64
	Requested int
	Available int
}

func (e *StockExhaustedError) Error() string {
	if e.VariantID != nil {
		return fmt.Sprintf("insufficient stock for variant %d of product %d: requested %d, available %d",
			*e.VariantID, e.ProductID, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *StockExhaustedError) Unwrap() error {
	return database.ErrInsufficientStock
}

// OrderCreationFailed wraps any unexpected failure while placing an order.
type OrderCreationFailed struct {
	Err error
}

func (e *OrderCreationFailed) Error() string {
	return fmt.Sprintf("order creation failed: %v", e.Err)
}

func (e *OrderCreationFailed) Unwrap() error {
	return e.Err
}
