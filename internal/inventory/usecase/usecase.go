package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-supply-service/internal/inventory"
	"github.com/fekuna/omnipos-supply-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-supply-service/internal/model"
	"github.com/fekuna/omnipos-supply-service/pkg/database/postgres"
	"github.com/fekuna/omnipos-supply-service/pkg/logger"
	"go.uber.org/zap"
)

type inventoryUseCase struct {
	repo      inventory.Repository
	publisher inventory.Publisher
	logger    logger.ZapLogger
	now       func() time.Time
}

type Option func(*inventoryUseCase)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(uc *inventoryUseCase) { uc.now = now }
}

// WithPublisher registers a publisher notified after each committed movement.
func WithPublisher(p inventory.Publisher) Option {
	return func(uc *inventoryUseCase) { uc.publisher = p }
}

func NewInventoryUseCase(repo inventory.Repository, log logger.ZapLogger, opts ...Option) inventory.UseCase {
	uc := &inventoryUseCase{
		repo:   repo,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *inventoryUseCase) StockIn(ctx context.Context, input *dto.MovementInput) (*model.InventoryMovement, error) {
	return uc.move(ctx, model.DirectionIn, input)
}

func (uc *inventoryUseCase) StockOut(ctx context.Context, input *dto.MovementInput) (*model.InventoryMovement, error) {
	return uc.move(ctx, model.DirectionOut, input)
}

func (uc *inventoryUseCase) ListMovements(ctx context.Context) ([]model.InventoryMovement, error) {
	items, err := uc.repo.ListMovements(ctx)
	if err != nil {
		return nil, classify(ctx, err)
	}
	uc.logger.Debug("Fetched inventory transactions", zap.Int("count", len(items)))
	return items, nil
}

func (uc *inventoryUseCase) ListMovementsBySupply(ctx context.Context, supplyID int64) ([]model.InventoryMovement, error) {
	items, err := uc.repo.ListMovementsBySupply(ctx, supplyID)
	if err != nil {
		return nil, classify(ctx, err)
	}
	uc.logger.Debug("Fetched inventory transactions for supply",
		zap.Int64("supply_id", supplyID),
		zap.Int("count", len(items)),
	)
	return items, nil
}

func validate(input *dto.MovementInput) error {
	if input == nil || input.Quantity < 1 {
		return inventory.ErrInvalidQuantity
	}
	if len(input.Note) > inventory.MaxNoteLength {
		return inventory.ErrNoteTooLong
	}
	return nil
}

// move applies a stock change and records it in one transaction. The supply
// row stays locked from the read until commit, so concurrent movements on the
// same supply are applied one after another.
func (uc *inventoryUseCase) move(ctx context.Context, dir model.Direction, input *dto.MovementInput) (*model.InventoryMovement, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	log := uc.logger.With(
		zap.String("direction", dir.String()),
		zap.Int64("supply_id", input.SupplyID),
		zap.Int64("quantity", input.Quantity),
	)
	log.Info("Processing stock movement")

	var (
		movement    *model.InventoryMovement
		oldQuantity int64
		newQuantity int64
	)

	err := uc.repo.WithTransaction(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
		supply, err := tx.FindSupplyForUpdate(ctx, input.SupplyID)
		if err != nil {
			return err
		}
		oldQuantity = supply.Quantity

		switch dir {
		case model.DirectionIn:
			if supply.Quantity > model.MaxQuantity-input.Quantity {
				return inventory.ErrQuantityOverflow
			}
			newQuantity = supply.Quantity + input.Quantity
		case model.DirectionOut:
			if supply.Quantity < input.Quantity {
				return &inventory.InsufficientStockError{
					SupplyID:  supply.ID,
					Available: supply.Quantity,
					Requested: input.Quantity,
				}
			}
			newQuantity = supply.Quantity - input.Quantity
		default:
			return fmt.Errorf("unsupported direction %q", dir)
		}

		now := uc.now()
		if err := tx.UpdateSupplyQuantity(ctx, supply.ID, newQuantity, now); err != nil {
			return err
		}

		m := &model.InventoryMovement{
			SupplyID:   supply.ID,
			Direction:  dir,
			Quantity:   input.Quantity,
			OccurredAt: now,
			Note:       input.Note,
		}
		if err := tx.AppendMovement(ctx, m); err != nil {
			return err
		}
		movement = m
		return nil
	})
	if err != nil {
		err = classify(ctx, err)
		if inventory.IsDomainError(err) {
			log.Warn("Stock movement rejected", zap.Error(err))
		} else {
			log.Error("Stock movement failed", zap.Error(err))
		}
		return nil, err
	}

	log.Info("Stock movement completed",
		zap.Int64("transaction_id", movement.ID),
		zap.Int64("old_quantity", oldQuantity),
		zap.Int64("new_quantity", newQuantity),
	)

	uc.publish(ctx, movement)
	return movement, nil
}

func (uc *inventoryUseCase) publish(ctx context.Context, m *model.InventoryMovement) {
	if uc.publisher == nil {
		return
	}
	// The movement is committed; a slow or cancelled request must not stop
	// the notification.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := uc.publisher.Publish(pubCtx, m); err != nil {
		uc.logger.Error("Failed to publish movement",
			zap.Int64("transaction_id", m.ID),
			zap.Error(err),
		)
	}
}

// classify maps store and context failures onto the inventory error kinds.
// Domain errors and unrecognised failures pass through untouched.
func classify(ctx context.Context, err error) error {
	if err == nil || inventory.IsDomainError(err) {
		return err
	}
	if errors.Is(err, inventory.ErrTimeout) || errors.Is(err, inventory.ErrStoreUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		ctx.Err() != nil || postgres.IsQueryCanceled(err) {
		return fmt.Errorf("%w: %w", inventory.ErrTimeout, err)
	}
	if postgres.IsUnavailable(err) {
		return fmt.Errorf("%w: %w", inventory.ErrStoreUnavailable, err)
	}
	return err
}
