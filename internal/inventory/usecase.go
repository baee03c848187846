package inventory

import (
	"context"

	"github.com/fekuna/omnipos-supply-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-supply-service/internal/model"
)

type UseCase interface {
	StockIn(ctx context.Context, input *dto.MovementInput) (*model.InventoryMovement, error)
	StockOut(ctx context.Context, input *dto.MovementInput) (*model.InventoryMovement, error)
	ListMovements(ctx context.Context) ([]model.InventoryMovement, error)
	ListMovementsBySupply(ctx context.Context, supplyID int64) ([]model.InventoryMovement, error)
}
