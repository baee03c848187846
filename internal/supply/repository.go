package supply

import (
	"context"

	"github.com/fekuna/omnipos-supply-service/internal/model"
)

type Repository interface {
	// Create inserts s and sets s.ID.
	Create(ctx context.Context, s *model.Supply) error
	// FindByID returns model.ErrSupplyNotFound when no row matches.
	FindByID(ctx context.Context, id int64) (*model.Supply, error)
	FindAll(ctx context.Context) ([]model.Supply, error)
	FindByCategory(ctx context.Context, category string) ([]model.Supply, error)
	// Update overwrites every mutable column of s and refreshes s.CreatedAt
	// from the stored row.
	Update(ctx context.Context, s *model.Supply) error
	Delete(ctx context.Context, id int64) error
}
