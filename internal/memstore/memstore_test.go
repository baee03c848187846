package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/omnipos-supply-service/internal/inventory"
	"github.com/fekuna/omnipos-supply-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store, qty int64) *model.Supply {
	t.Helper()
	sup := &model.Supply{Name: "Gloves", Quantity: qty, Category: "PPE"}
	require.NoError(t, s.Create(context.Background(), sup))
	return sup
}

func TestTransactionCommit(t *testing.T) {
	s := New()
	sup := seed(t, s, 10)
	ctx := context.Background()

	err := s.WithTransaction(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
		require.NoError(t, tx.UpdateSupplyQuantity(ctx, sup.ID, 4, time.Now()))
		return tx.AppendMovement(ctx, &model.InventoryMovement{SupplyID: sup.ID, Direction: model.DirectionOut, Quantity: 6})
	})
	require.NoError(t, err)

	got, err := s.FindByID(ctx, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Quantity)

	mvs, err := s.ListMovements(ctx)
	require.NoError(t, err)
	require.Len(t, mvs, 1)
	assert.Equal(t, int64(1), mvs[0].ID)
}

func TestTransactionRollbackOnError(t *testing.T) {
	s := New()
	sup := seed(t, s, 10)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTransaction(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
		require.NoError(t, tx.UpdateSupplyQuantity(ctx, sup.ID, 0, time.Now()))
		require.NoError(t, tx.AppendMovement(ctx, &model.InventoryMovement{SupplyID: sup.ID, Direction: model.DirectionOut, Quantity: 10}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.FindByID(ctx, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Quantity)

	mvs, err := s.ListMovements(ctx)
	require.NoError(t, err)
	assert.Empty(t, mvs)
}

func TestTransactionRollbackOnPanic(t *testing.T) {
	s := New()
	sup := seed(t, s, 10)
	ctx := context.Background()

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = s.WithTransaction(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
			_ = tx.UpdateSupplyQuantity(ctx, sup.ID, 1, time.Now())
			panic("kaboom")
		})
	})

	got, err := s.FindByID(ctx, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Quantity)

	// The lock must have been released.
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, s.WithTransaction(ctx, func(context.Context, inventory.TxRepository) error { return nil }))
}

func TestCommitFault(t *testing.T) {
	s := New()
	sup := seed(t, s, 10)
	ctx := context.Background()
	boom := errors.New("commit failed")
	s.Fail(OpCommit, boom)

	err := s.WithTransaction(ctx, func(ctx context.Context, tx inventory.TxRepository) error {
		return tx.UpdateSupplyQuantity(ctx, sup.ID, 3, time.Now())
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.FindByID(ctx, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Quantity)

	s.Fail(OpCommit, nil)
	require.NoError(t, s.WithTransaction(ctx, func(context.Context, inventory.TxRepository) error { return nil }))
}

func TestLockHonorsDeadline(t *testing.T) {
	s := New()
	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = s.WithTransaction(context.Background(), func(context.Context, inventory.TxRepository) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.WithTransaction(ctx, func(context.Context, inventory.TxRepository) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-done
}

func TestSupplyCRUD(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := seed(t, s, 1)
	b := &model.Supply{Name: "Masks", Category: "Other"}
	require.NoError(t, s.Create(ctx, b))

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)

	ppe, err := s.FindByCategory(ctx, "PPE")
	require.NoError(t, err)
	require.Len(t, ppe, 1)
	assert.Equal(t, "Gloves", ppe[0].Name)

	require.NoError(t, s.Delete(ctx, a.ID))
	_, err = s.FindByID(ctx, a.ID)
	assert.ErrorIs(t, err, model.ErrSupplyNotFound)
	assert.ErrorIs(t, s.Delete(ctx, a.ID), model.ErrSupplyNotFound)
	assert.ErrorIs(t, s.Update(ctx, &model.Supply{ID: a.ID}), model.ErrSupplyNotFound)
}

func TestPing(t *testing.T) {
	s := New()
	assert.NoError(t, s.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Ping(ctx), context.Canceled)
}
