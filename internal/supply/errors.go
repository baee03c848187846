package supply

import (
	"errors"

	"github.com/fekuna/omnipos-supply-service/internal/model"
)

const (
	MaxNameLength     = 255
	MaxCategoryLength = 100
)

var (
	ErrSupplyNotFound       = model.ErrSupplyNotFound
	ErrNameRequired         = errors.New("name is required")
	ErrNameTooLong          = errors.New("name must be at most 255 characters")
	ErrCategoryTooLong      = errors.New("category must be at most 100 characters")
	ErrInvalidQuantity      = errors.New("quantity must be between 0 and 2147483647")
	ErrInvalidUnitPrice     = errors.New("unit price must be non-negative with at most 2 decimal places")
	ErrImportNotImplemented = errors.New("CSV import is not implemented")
)

// IsValidationError reports errors caused by a malformed supply input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrNameTooLong) ||
		errors.Is(err, ErrCategoryTooLong) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidUnitPrice)
}
