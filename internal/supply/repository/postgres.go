package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-supply-service/internal/model"
	"github.com/jmoiron/sqlx"
)

const supplyColumns = `id, name, quantity, unit_price, category, created_at, updated_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, s *model.Supply) error {
	query := `
        INSERT INTO supplies (name, quantity, unit_price, category, created_at, updated_at)
        VALUES (:name, :quantity, :unit_price, :category, :created_at, :updated_at)
        RETURNING id
    `
	rows, err := r.DB.NamedQueryContext(ctx, query, s)
	if err != nil {
		return fmt.Errorf("insert supply: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("insert supply: %w", err)
		}
		return errors.New("insert supply: no id returned")
	}
	if err := rows.Scan(&s.ID); err != nil {
		return fmt.Errorf("insert supply: %w", err)
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id int64) (*model.Supply, error) {
	var s model.Supply
	query := `SELECT ` + supplyColumns + ` FROM supplies WHERE id = $1`
	if err := r.DB.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrSupplyNotFound
		}
		return nil, fmt.Errorf("find supply %d: %w", id, err)
	}
	return &s, nil
}

func (r *PGRepository) FindAll(ctx context.Context) ([]model.Supply, error) {
	items := []model.Supply{}
	query := `SELECT ` + supplyColumns + ` FROM supplies ORDER BY id`
	if err := r.DB.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list supplies: %w", err)
	}
	return items, nil
}

func (r *PGRepository) FindByCategory(ctx context.Context, category string) ([]model.Supply, error) {
	items := []model.Supply{}
	query := `SELECT ` + supplyColumns + ` FROM supplies WHERE category = $1 ORDER BY id`
	if err := r.DB.SelectContext(ctx, &items, query, category); err != nil {
		return nil, fmt.Errorf("list supplies in category %q: %w", category, err)
	}
	return items, nil
}

// Update rewrites the row in a single statement. The statement takes the row
// lock, so it waits behind any movement in flight for the same supply.
func (r *PGRepository) Update(ctx context.Context, s *model.Supply) error {
	query := `
        UPDATE supplies
        SET name = $1, quantity = $2, unit_price = $3, category = $4, updated_at = $5
        WHERE id = $6
        RETURNING created_at
    `
	err := r.DB.GetContext(ctx, &s.CreatedAt, query,
		s.Name, s.Quantity, s.UnitPrice, s.Category, s.UpdatedAt, s.ID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrSupplyNotFound
		}
		return fmt.Errorf("update supply %d: %w", s.ID, err)
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM supplies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete supply %d: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete supply %d: %w", id, err)
	}
	if rows == 0 {
		return model.ErrSupplyNotFound
	}
	return nil
}
