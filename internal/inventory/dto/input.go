package dto

type MovementInput struct {
	SupplyID int64
	Quantity int64
	Note     string
}
