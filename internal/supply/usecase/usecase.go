package usecase

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fekuna/omnipos-supply-service/internal/export"
	"github.com/fekuna/omnipos-supply-service/internal/model"
	"github.com/fekuna/omnipos-supply-service/internal/supply"
	"github.com/fekuna/omnipos-supply-service/internal/supply/dto"
	"github.com/fekuna/omnipos-supply-service/pkg/cache"
	"github.com/fekuna/omnipos-supply-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	exportCacheKey      = "supplies:export:xlsx"
	exportGenerationKey = "supplies:export:generation"
)

// exportKey scopes a cached workbook to the generation it was rendered in.
func exportKey(gen int64) string {
	return exportCacheKey + ":" + strconv.FormatInt(gen, 10)
}

// maxUnitPrice is the first value NUMERIC(12,2) cannot hold.
var maxUnitPrice = decimal.New(1, 10)

// Cache is the subset of cache.RedisClient the export uses.
type Cache interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	GetInt64(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

type supplyUseCase struct {
	repo     supply.Repository
	cache    Cache
	cacheTTL time.Duration
	logger   logger.ZapLogger
	now      func() time.Time
}

type Option func(*supplyUseCase)

// WithExportCache keeps rendered workbooks in c for ttl. Any supply or stock
// change drops the cached copy.
func WithExportCache(c Cache, ttl time.Duration) Option {
	return func(uc *supplyUseCase) {
		uc.cache = c
		uc.cacheTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(uc *supplyUseCase) { uc.now = now }
}

func NewSupplyUseCase(repo supply.Repository, log logger.ZapLogger, opts ...Option) supply.UseCase {
	uc := &supplyUseCase{
		repo:   repo,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *supplyUseCase) ListSupplies(ctx context.Context) ([]model.Supply, error) {
	return uc.repo.FindAll(ctx)
}

func (uc *supplyUseCase) ListByCategory(ctx context.Context, category string) ([]model.Supply, error) {
	return uc.repo.FindByCategory(ctx, category)
}

func (uc *supplyUseCase) GetSupply(ctx context.Context, id int64) (*model.Supply, error) {
	return uc.repo.FindByID(ctx, id)
}

func (uc *supplyUseCase) CreateSupply(ctx context.Context, input *dto.SupplyInput) (*model.Supply, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	now := uc.now()
	s := &model.Supply{
		Name:      input.Name,
		Quantity:  input.Quantity,
		UnitPrice: input.UnitPrice,
		Category:  input.Category,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, s); err != nil {
		uc.logger.Error("Failed to create supply", zap.String("name", input.Name), zap.Error(err))
		return nil, err
	}

	uc.logger.Info("Supply created", zap.Int64("id", s.ID), zap.String("name", s.Name))
	uc.InvalidateExportCache(ctx)
	return s, nil
}

func (uc *supplyUseCase) UpdateSupply(ctx context.Context, id int64, input *dto.SupplyInput) (*model.Supply, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	s := &model.Supply{
		ID:        id,
		Name:      input.Name,
		Quantity:  input.Quantity,
		UnitPrice: input.UnitPrice,
		Category:  input.Category,
		UpdatedAt: uc.now(),
	}
	if err := uc.repo.Update(ctx, s); err != nil {
		if !errors.Is(err, supply.ErrSupplyNotFound) {
			uc.logger.Error("Failed to update supply", zap.Int64("id", id), zap.Error(err))
		}
		return nil, err
	}

	uc.logger.Info("Supply updated", zap.Int64("id", id), zap.Int64("quantity", s.Quantity))
	uc.InvalidateExportCache(ctx)
	return s, nil
}

func (uc *supplyUseCase) DeleteSupply(ctx context.Context, id int64) error {
	if err := uc.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, supply.ErrSupplyNotFound) {
			uc.logger.Error("Failed to delete supply", zap.Int64("id", id), zap.Error(err))
		}
		return err
	}

	uc.logger.Info("Supply deleted", zap.Int64("id", id))
	uc.InvalidateExportCache(ctx)
	return nil
}

// ExportWorkbook serves the cached workbook of the current generation or
// renders a fresh one. The generation is read before the supplies, so a
// workbook raced by a change is stored under a generation nobody reads again.
func (uc *supplyUseCase) ExportWorkbook(ctx context.Context) ([]byte, error) {
	gen, cacheable := uc.exportGeneration(ctx)
	if cacheable {
		b, err := uc.cache.GetBytes(ctx, exportKey(gen))
		switch {
		case err == nil:
			uc.logger.Debug("Export served from cache", zap.Int64("generation", gen), zap.Int("bytes", len(b)))
			return b, nil
		case !errors.Is(err, cache.ErrMiss):
			uc.logger.Warn("Export cache read failed", zap.Error(err))
			cacheable = false
		}
	}

	supplies, err := uc.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("Starting Excel export", zap.Int("supplies", len(supplies)))

	b, err := export.Workbook(supplies)
	if err != nil {
		uc.logger.Error("Excel export failed", zap.Error(err))
		return nil, err
	}
	uc.logger.Info("Excel export completed", zap.Int("bytes", len(b)))

	if cacheable {
		if err := uc.cache.SetBytes(ctx, exportKey(gen), b, uc.cacheTTL); err != nil {
			uc.logger.Warn("Export cache write failed", zap.Error(err))
		}
	}
	return b, nil
}

func (uc *supplyUseCase) exportGeneration(ctx context.Context) (int64, bool) {
	if uc.cache == nil {
		return 0, false
	}
	gen, err := uc.cache.GetInt64(ctx, exportGenerationKey)
	switch {
	case err == nil:
		return gen, true
	case errors.Is(err, cache.ErrMiss):
		return 0, true
	default:
		uc.logger.Warn("Export cache generation read failed", zap.Error(err))
		return 0, false
	}
}

// InvalidateExportCache moves the export to a new generation and drops the
// workbook of the previous one.
func (uc *supplyUseCase) InvalidateExportCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	gen, err := uc.cache.Incr(ctx, exportGenerationKey)
	if err != nil {
		uc.logger.Warn("Export cache invalidation failed", zap.Error(err))
		return
	}
	if err := uc.cache.Delete(ctx, exportKey(gen-1)); err != nil {
		uc.logger.Warn("Export cache cleanup failed", zap.Int64("generation", gen-1), zap.Error(err))
	}
}

func (uc *supplyUseCase) ImportCSV(ctx context.Context, r io.Reader) error {
	uc.logger.Warn("CSV import requested but not implemented")
	return supply.ErrImportNotImplemented
}

func validate(input *dto.SupplyInput) error {
	if input == nil || strings.TrimSpace(input.Name) == "" {
		return supply.ErrNameRequired
	}
	if utf8.RuneCountInString(input.Name) > supply.MaxNameLength {
		return supply.ErrNameTooLong
	}
	if input.Quantity < 0 || input.Quantity > model.MaxQuantity {
		return supply.ErrInvalidQuantity
	}
	p := input.UnitPrice
	if p.IsNegative() || !p.Equal(p.Round(2)) || p.GreaterThanOrEqual(maxUnitPrice) {
		return supply.ErrInvalidUnitPrice
	}
	if utf8.RuneCountInString(input.Category) > supply.MaxCategoryLength {
		return supply.ErrCategoryTooLong
	}
	return nil
}
