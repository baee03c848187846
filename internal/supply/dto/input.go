package dto

import "github.com/shopspring/decimal"

// SupplyInput carries the administrator-editable fields of a supply. Create
// and update take the same shape; update overwrites every field.
type SupplyInput struct {
	Name      string
	Quantity  int64
	UnitPrice decimal.Decimal
	Category  string
}
