package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-supply-service/internal/inventory"
	"github.com/fekuna/omnipos-supply-service/internal/model"
	"github.com/fekuna/omnipos-supply-service/pkg/database/postgres"
	"github.com/jmoiron/sqlx"
)

const (
	movementColumns = `id, supply_id, type, quantity, transaction_date, note`
	supplyColumns   = `id, name, quantity, unit_price, category, created_at, updated_at`
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx inventory.TxRepository) error) error {
	_, err := postgres.TxClosure(ctx, r.DB, func(ctx context.Context, tx *sqlx.Tx) (struct{}, error) {
		return struct{}{}, fn(ctx, &pgTx{q: tx})
	})
	return err
}

func (r *PGRepository) ListMovements(ctx context.Context) ([]model.InventoryMovement, error) {
	items := []model.InventoryMovement{}
	query := `SELECT ` + movementColumns + ` FROM inventory_transactions ORDER BY id`
	if err := r.DB.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return items, nil
}

func (r *PGRepository) ListMovementsBySupply(ctx context.Context, supplyID int64) ([]model.InventoryMovement, error) {
	items := []model.InventoryMovement{}
	query := `SELECT ` + movementColumns + ` FROM inventory_transactions WHERE supply_id = $1 ORDER BY id`
	if err := r.DB.SelectContext(ctx, &items, query, supplyID); err != nil {
		return nil, fmt.Errorf("list movements for supply %d: %w", supplyID, err)
	}
	return items, nil
}

// pgTx runs the core's store calls on an open transaction. Any sqlx.ExtContext
// works, so the same statements also run auto-committed against *sqlx.DB.
type pgTx struct {
	q sqlx.ExtContext
}

func (t *pgTx) FindSupplyForUpdate(ctx context.Context, id int64) (*model.Supply, error) {
	var s model.Supply
	query := `SELECT ` + supplyColumns + ` FROM supplies WHERE id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, t.q, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrSupplyNotFound
		}
		return nil, fmt.Errorf("find supply %d: %w", id, err)
	}
	return &s, nil
}

func (t *pgTx) UpdateSupplyQuantity(ctx context.Context, id int64, quantity int64, now time.Time) error {
	res, err := t.q.ExecContext(ctx,
		`UPDATE supplies SET quantity = $1, updated_at = $2 WHERE id = $3`,
		quantity, now, id,
	)
	if err != nil {
		return fmt.Errorf("update supply %d quantity: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update supply %d quantity: %w", id, err)
	}
	if rows == 0 {
		return model.ErrSupplyNotFound
	}
	return nil
}

func (t *pgTx) AppendMovement(ctx context.Context, m *model.InventoryMovement) error {
	query := `
        INSERT INTO inventory_transactions (supply_id, type, quantity, transaction_date, note)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	if err := sqlx.GetContext(ctx, t.q, &m.ID, query,
		m.SupplyID, m.Direction, m.Quantity, m.OccurredAt, m.Note,
	); err != nil {
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}
