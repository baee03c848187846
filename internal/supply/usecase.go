package supply

import (
	"context"
	"io"

	"github.com/fekuna/omnipos-supply-service/internal/model"
	"github.com/fekuna/omnipos-supply-service/internal/supply/dto"
)

type UseCase interface {
	ListSupplies(ctx context.Context) ([]model.Supply, error)
	ListByCategory(ctx context.Context, category string) ([]model.Supply, error)
	GetSupply(ctx context.Context, id int64) (*model.Supply, error)
	CreateSupply(ctx context.Context, input *dto.SupplyInput) (*model.Supply, error)
	UpdateSupply(ctx context.Context, id int64, input *dto.SupplyInput) (*model.Supply, error)
	DeleteSupply(ctx context.Context, id int64) error

	// ExportWorkbook renders every supply as an xlsx workbook.
	ExportWorkbook(ctx context.Context) ([]byte, error)
	// InvalidateExportCache drops any cached workbook. Called whenever stock
	// changes outside this use case.
	InvalidateExportCache(ctx context.Context)
	ImportCSV(ctx context.Context, r io.Reader) error
}
