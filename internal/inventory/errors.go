package inventory

import (
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-supply-service/internal/model"
)

// MaxNoteLength bounds a movement note, in bytes.
const MaxNoteLength = 1024

var (
	ErrSupplyNotFound    = model.ErrSupplyNotFound
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be a positive integer")
	ErrQuantityOverflow  = errors.New("quantity would exceed the representable range")
	ErrNoteTooLong       = fmt.Errorf("note exceeds %d bytes", MaxNoteLength)
	ErrTimeout           = errors.New("operation timed out")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// InsufficientStockError reports a stock-out larger than the on-hand count.
// It matches ErrInsufficientStock with errors.Is.
type InsufficientStockError struct {
	SupplyID  int64
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock. available: %d", e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// IsDomainError reports errors produced by the inventory rules themselves, as
// opposed to store or deadline failures.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrSupplyNotFound) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrQuantityOverflow) ||
		errors.Is(err, ErrNoteTooLong)
}
