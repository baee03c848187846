package usecase

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-supply-service/internal/inventory"
	"github.com/fekuna/omnipos-supply-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-supply-service/internal/memstore"
	"github.com/fekuna/omnipos-supply-service/internal/model"
	"github.com/fekuna/omnipos-supply-service/pkg/logger"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	mu    sync.Mutex
	seen  []model.InventoryMovement
	fails error
}

func (p *recordingPublisher) Publish(_ context.Context, m *model.InventoryMovement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, *m)
	return p.fails
}

func setup(t *testing.T, opening int64, opts ...Option) (*memstore.Store, inventory.UseCase, int64) {
	t.Helper()
	store := memstore.New()
	sup := &model.Supply{Name: "Nitrile gloves", Quantity: opening, Category: "PPE", CreatedAt: fixedNow, UpdatedAt: fixedNow}
	require.NoError(t, store.Create(context.Background(), sup))

	opts = append([]Option{WithClock(func() time.Time { return fixedNow.Add(time.Hour) })}, opts...)
	uc := NewInventoryUseCase(store, logger.NewNop(), opts...)
	return store, uc, sup.ID
}

func quantityOf(t *testing.T, store *memstore.Store, id int64) int64 {
	t.Helper()
	s, err := store.FindByID(context.Background(), id)
	require.NoError(t, err)
	return s.Quantity
}

func TestStockIn(t *testing.T) {
	store, uc, id := setup(t, 10)
	ctx := context.Background()

	m, err := uc.StockIn(ctx, &dto.MovementInput{SupplyID: id, Quantity: 5, Note: "delivery"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), m.ID)
	assert.Equal(t, id, m.SupplyID)
	assert.Equal(t, model.DirectionIn, m.Direction)
	assert.Equal(t, int64(5), m.Quantity)
	assert.Equal(t, "delivery", m.Note)
	assert.True(t, m.OccurredAt.Equal(fixedNow.Add(time.Hour)))

	sup, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(15), sup.Quantity)
	assert.True(t, sup.UpdatedAt.Equal(m.OccurredAt))
}

func TestStockOut(t *testing.T) {
	store, uc, id := setup(t, 10)
	ctx := context.Background()

	m, err := uc.StockOut(ctx, &dto.MovementInput{SupplyID: id, Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, model.DirectionOut, m.Direction)
	assert.Equal(t, int64(0), quantityOf(t, store, id))

	mvs, err := uc.ListMovementsBySupply(ctx, id)
	require.NoError(t, err)
	require.Len(t, mvs, 1)
	assert.Equal(t, *m, mvs[0])
}

func TestStockOutInsufficient(t *testing.T) {
	store, uc, id := setup(t, 3)
	ctx := context.Background()

	_, err := uc.StockOut(ctx, &dto.MovementInput{SupplyID: id, Quantity: 5})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	var ise *inventory.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(3), ise.Available)
	assert.Equal(t, int64(5), ise.Requested)
	assert.Equal(t, "insufficient stock. available: 3", err.Error())

	assert.Equal(t, int64(3), quantityOf(t, store, id))
	mvs, err := uc.ListMovements(ctx)
	require.NoError(t, err)
	assert.Empty(t, mvs)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name  string
		input *dto.MovementInput
		want  error
	}{
		{"zero quantity", &dto.MovementInput{Quantity: 0}, inventory.ErrInvalidQuantity},
		{"negative quantity", &dto.MovementInput{Quantity: -4}, inventory.ErrInvalidQuantity},
		{"nil input", nil, inventory.ErrInvalidQuantity},
		{"note too long", &dto.MovementInput{Quantity: 1, Note: strings.Repeat("a", inventory.MaxNoteLength+1)}, inventory.ErrNoteTooLong},
		{"bad quantity wins over bad note", &dto.MovementInput{Quantity: 0, Note: strings.Repeat("a", inventory.MaxNoteLength+1)}, inventory.ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, uc, id := setup(t, 10)
			if tt.input != nil {
				tt.input.SupplyID = id
			}

			_, err := uc.StockIn(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.want)
			_, err = uc.StockOut(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.want)

			assert.Equal(t, int64(10), quantityOf(t, store, id))
		})
	}
}

func TestNoteAtLimit(t *testing.T) {
	_, uc, id := setup(t, 0)
	note := strings.Repeat("あ", inventory.MaxNoteLength/3)

	m, err := uc.StockIn(context.Background(), &dto.MovementInput{SupplyID: id, Quantity: 1, Note: note})
	require.NoError(t, err)
	assert.Equal(t, note, m.Note)
}

func TestSupplyNotFound(t *testing.T) {
	_, uc, id := setup(t, 10)

	_, err := uc.StockIn(context.Background(), &dto.MovementInput{SupplyID: id + 100, Quantity: 1})
	assert.ErrorIs(t, err, inventory.ErrSupplyNotFound)
	_, err = uc.StockOut(context.Background(), &dto.MovementInput{SupplyID: id + 100, Quantity: 1})
	assert.ErrorIs(t, err, inventory.ErrSupplyNotFound)
}

func TestQuantityOverflow(t *testing.T) {
	store, uc, id := setup(t, model.MaxQuantity-1)
	ctx := context.Background()

	_, err := uc.StockIn(ctx, &dto.MovementInput{SupplyID: id, Quantity: 2})
	assert.ErrorIs(t, err, inventory.ErrQuantityOverflow)
	assert.Equal(t, model.MaxQuantity-1, quantityOf(t, store, id))

	_, err = uc.StockIn(ctx, &dto.MovementInput{SupplyID: id, Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, model.MaxQuantity, quantityOf(t, store, id))
}

func TestRollbackOnStoreFailure(t *testing.T) {
	for _, op := range []memstore.Op{
		memstore.OpFindSupply,
		memstore.OpUpdateQuantity,
		memstore.OpAppendMovement,
		memstore.OpCommit,
	} {
		t.Run(string(op), func(t *testing.T) {
			store, uc, id := setup(t, 10)
			ctx := context.Background()
			boom := &pq.Error{Code: "08006", Message: "connection failure"}
			store.Fail(op, boom)

			_, err := uc.StockOut(ctx, &dto.MovementInput{SupplyID: id, Quantity: 4})
			require.ErrorIs(t, err, inventory.ErrStoreUnavailable)
			assert.ErrorIs(t, err, boom)

			_, err = uc.StockIn(ctx, &dto.MovementInput{SupplyID: id, Quantity: 4})
			require.ErrorIs(t, err, inventory.ErrStoreUnavailable)

			assert.Equal(t, int64(10), quantityOf(t, store, id))
			mvs, err := store.ListMovements(ctx)
			require.NoError(t, err)
			assert.Empty(t, mvs)
		})
	}
}

func TestUnrecognisedStoreFailureRollsBack(t *testing.T) {
	store, uc, id := setup(t, 10)
	ctx := context.Background()
	boom := errors.New("value too long for type character varying(3)")
	store.Fail(memstore.OpAppendMovement, boom)

	_, err := uc.StockOut(ctx, &dto.MovementInput{SupplyID: id, Quantity: 4})
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, inventory.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, inventory.ErrTimeout)
	assert.Equal(t, int64(10), quantityOf(t, store, id))
}

func TestListBySupplyIsProjectionOfAll(t *testing.T) {
	store, uc, a := setup(t, 20)
	ctx := context.Background()
	other := &model.Supply{Name: "Face masks", Quantity: 20, Category: "PPE"}
	require.NoError(t, store.Create(ctx, other))
	b := other.ID

	steps := []struct {
		id  int64
		out bool
		q   int64
	}{
		{a, false, 1}, {b, true, 2}, {b, false, 3}, {a, true, 4}, {b, true, 5}, {a, false, 6},
	}
	for _, st := range steps {
		fn := uc.StockIn
		if st.out {
			fn = uc.StockOut
		}
		_, err := fn(ctx, &dto.MovementInput{SupplyID: st.id, Quantity: st.q})
		require.NoError(t, err)
	}

	all, err := uc.ListMovements(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(steps))

	for _, id := range []int64{a, b} {
		var want []model.InventoryMovement
		for _, m := range all {
			if m.SupplyID == id {
				want = append(want, m)
			}
		}
		got, err := uc.ListMovementsBySupply(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Len(t, got, 3)
	}
	assert.Equal(t, int64(23), quantityOf(t, store, a))
	assert.Equal(t, int64(16), quantityOf(t, store, b))
}

func TestStockOutConcurrent(t *testing.T) {
	const (
		opening = 100
		q       = 7
		workers = 50
	)
	store, uc, id := setup(t, opening)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.StockOut(context.Background(), &dto.MovementInput{SupplyID: id, Quantity: q})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, inventory.ErrInsufficientStock):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, opening/q, succeeded)
	assert.Equal(t, workers-opening/q, insufficient)
	assert.Equal(t, int64(opening-(opening/q)*q), quantityOf(t, store, id))

	mvs, err := store.ListMovementsBySupply(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, mvs, opening/q)
}

func TestMixedMovementsKeepBalance(t *testing.T) {
	store, uc, id := setup(t, 20)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = uc.StockIn(ctx, &dto.MovementInput{SupplyID: id, Quantity: 3})
		}()
		go func() {
			defer wg.Done()
			_, _ = uc.StockOut(ctx, &dto.MovementInput{SupplyID: id, Quantity: 5})
		}()
	}
	wg.Wait()

	mvs, err := uc.ListMovementsBySupply(ctx, id)
	require.NoError(t, err)

	balance := int64(20)
	for _, m := range mvs {
		if m.Direction == model.DirectionIn {
			balance += m.Quantity
		} else {
			balance -= m.Quantity
		}
		assert.GreaterOrEqual(t, balance, int64(0))
	}
	assert.Equal(t, balance, quantityOf(t, store, id))
}

func TestTimeout(t *testing.T) {
	t.Run("cancelled context", func(t *testing.T) {
		store, uc, id := setup(t, 10)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := uc.StockOut(ctx, &dto.MovementInput{SupplyID: id, Quantity: 1})
		assert.ErrorIs(t, err, inventory.ErrTimeout)
		assert.Equal(t, int64(10), quantityOf(t, store, id))
	})

	t.Run("lock held past deadline", func(t *testing.T) {
		store, uc, id := setup(t, 10)
		held := make(chan struct{})
		release := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = store.WithTransaction(context.Background(), func(context.Context, inventory.TxRepository) error {
				close(held)
				<-release
				return nil
			})
		}()
		<-held

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := uc.StockOut(ctx, &dto.MovementInput{SupplyID: id, Quantity: 1})
		assert.ErrorIs(t, err, inventory.ErrTimeout)

		close(release)
		<-done
		assert.Equal(t, int64(10), quantityOf(t, store, id))
	})
}

func TestPublishAfterCommit(t *testing.T) {
	pub := &recordingPublisher{}
	_, uc, id := setup(t, 10, WithPublisher(pub))
	ctx := context.Background()

	m, err := uc.StockIn(ctx, &dto.MovementInput{SupplyID: id, Quantity: 2})
	require.NoError(t, err)
	_, err = uc.StockOut(ctx, &dto.MovementInput{SupplyID: id, Quantity: 50})
	require.Error(t, err)

	require.Len(t, pub.seen, 1)
	assert.Equal(t, *m, pub.seen[0])
}

func TestPublishFailureDoesNotFailMovement(t *testing.T) {
	pub := &recordingPublisher{fails: errors.New("broker down")}
	store, uc, id := setup(t, 10, WithPublisher(pub))

	_, err := uc.StockOut(context.Background(), &dto.MovementInput{SupplyID: id, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(8), quantityOf(t, store, id))
	assert.Len(t, pub.seen, 1)
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	storeErr := fmt.Errorf("begin: %w", driver.ErrBadConn)
	plain := errors.New("unexpected")

	assert.Nil(t, classify(ctx, nil))
	assert.Equal(t, inventory.ErrNoteTooLong, classify(ctx, inventory.ErrNoteTooLong))
	assert.ErrorIs(t, classify(ctx, storeErr), inventory.ErrStoreUnavailable)
	assert.ErrorIs(t, classify(ctx, &pq.Error{Code: "40001"}), inventory.ErrStoreUnavailable)
	assert.Equal(t, plain, classify(ctx, plain))
	assert.ErrorIs(t, classify(ctx, context.DeadlineExceeded), inventory.ErrTimeout)
	assert.ErrorIs(t, classify(ctx, &pq.Error{Code: "57014"}), inventory.ErrTimeout)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, classify(cancelled, storeErr), inventory.ErrTimeout)

	already := classify(ctx, storeErr)
	assert.Equal(t, already, classify(ctx, already))
}
