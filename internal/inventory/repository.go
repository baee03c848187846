package inventory

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-supply-service/internal/model"
)

type Repository interface {
	// WithTransaction runs fn in a single database transaction. It commits when
	// fn returns nil and rolls back on an error or panic.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error

	// Movements are returned in commit order (ascending id).
	ListMovements(ctx context.Context) ([]model.InventoryMovement, error)
	ListMovementsBySupply(ctx context.Context, supplyID int64) ([]model.InventoryMovement, error)
}

// TxRepository is the set of store calls available inside WithTransaction.
type TxRepository interface {
	// FindSupplyForUpdate reads the supply row and holds its row lock until
	// the transaction ends. Returns model.ErrSupplyNotFound when absent.
	FindSupplyForUpdate(ctx context.Context, id int64) (*model.Supply, error)
	UpdateSupplyQuantity(ctx context.Context, id int64, quantity int64, now time.Time) error
	// AppendMovement inserts m and sets m.ID.
	AppendMovement(ctx context.Context, m *model.InventoryMovement) error
}

// Publisher is told about movements after their transaction has committed.
type Publisher interface {
	Publish(ctx context.Context, m *model.InventoryMovement) error
}
