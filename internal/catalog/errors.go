package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInvalidCart       = errors.New("invalid cart")
	ErrNegativeStock     = errors.New("stock cannot go negative")
	ErrStockOverflow     = errors.New("stock overflow")

	ErrStorageRead  = errors.New("catalog storage read failed")
	ErrStorageWrite = errors.New("catalog storage write failed")
)

// StockError names the cart line that failed validation.
type StockError struct {
	ProductID int64
	Requested int64
	Available int64
	Missing   bool
}

func (e *StockError) Error() string {
	if e.Missing {
		return fmt.Sprintf("insufficient stock: product %d not in catalog", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock: product %d requested=%d available=%d",
		e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

func readErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageRead, err)
}

func writeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageWrite, err)
}
