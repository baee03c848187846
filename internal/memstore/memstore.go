// Package memstore is an in-process implementation of the supply and
// inventory repositories. Transactions are serialized by a single lock that
// honors context deadlines, and their writes are discarded on error or panic.
// It backs the HTTP and use case tests and can be used for local runs without
// Postgres.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-supply-service/internal/inventory"
	"github.com/fekuna/omnipos-supply-service/internal/model"
)

// Op names a store call that can be made to fail with Fail.
type Op string

const (
	OpFindSupply     Op = "find_supply"
	OpUpdateQuantity Op = "update_supply_quantity"
	OpAppendMovement Op = "append_movement"
	OpCommit         Op = "commit"
)

type Store struct {
	sem chan struct{}

	supplies       map[int64]model.Supply
	movements      []model.InventoryMovement
	nextSupplyID   int64
	nextMovementID int64

	faultsMu sync.Mutex
	faults   map[Op]error
}

func New() *Store {
	return &Store{
		sem:      make(chan struct{}, 1),
		supplies: make(map[int64]model.Supply),
		faults:   make(map[Op]error),
	}
}

// Fail makes every later call of op return err. A nil err clears the fault.
func (s *Store) Fail(op Op, err error) {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) fault(op Op) error {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()
	return s.faults[op]
}

func (s *Store) lock(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) unlock() { <-s.sem }

// Ping reports readiness; the store is always reachable.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

type snapshot struct {
	supplies       map[int64]model.Supply
	movements      int
	nextSupplyID   int64
	nextMovementID int64
}

func (s *Store) snapshot() snapshot {
	cp := make(map[int64]model.Supply, len(s.supplies))
	for k, v := range s.supplies {
		cp[k] = v
	}
	return snapshot{
		supplies:       cp,
		movements:      len(s.movements),
		nextSupplyID:   s.nextSupplyID,
		nextMovementID: s.nextMovementID,
	}
}

func (s *Store) restore(snap snapshot) {
	s.supplies = snap.supplies
	s.movements = s.movements[:snap.movements]
	s.nextSupplyID = snap.nextSupplyID
	s.nextMovementID = snap.nextMovementID
}

// WithTransaction runs fn while holding the store lock. Writes made by fn are
// kept only when fn returns nil and the commit fault is unset.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx inventory.TxRepository) error) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	snap := s.snapshot()
	committed := false
	defer func() {
		if !committed {
			s.restore(snap)
		}
	}()

	if err := fn(ctx, &tx{s: s}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fault(OpCommit); err != nil {
		return err
	}
	committed = true
	return nil
}

type tx struct {
	s *Store
}

func (t *tx) FindSupplyForUpdate(ctx context.Context, id int64) (*model.Supply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := t.s.fault(OpFindSupply); err != nil {
		return nil, err
	}
	sup, ok := t.s.supplies[id]
	if !ok {
		return nil, model.ErrSupplyNotFound
	}
	return &sup, nil
}

func (t *tx) UpdateSupplyQuantity(ctx context.Context, id int64, quantity int64, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.s.fault(OpUpdateQuantity); err != nil {
		return err
	}
	sup, ok := t.s.supplies[id]
	if !ok {
		return model.ErrSupplyNotFound
	}
	sup.Quantity = quantity
	sup.UpdatedAt = now
	t.s.supplies[id] = sup
	return nil
}

func (t *tx) AppendMovement(ctx context.Context, m *model.InventoryMovement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.s.fault(OpAppendMovement); err != nil {
		return err
	}
	t.s.nextMovementID++
	m.ID = t.s.nextMovementID
	t.s.movements = append(t.s.movements, *m)
	return nil
}

func (s *Store) ListMovements(ctx context.Context) ([]model.InventoryMovement, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	out := make([]model.InventoryMovement, len(s.movements))
	copy(out, s.movements)
	return out, nil
}

func (s *Store) ListMovementsBySupply(ctx context.Context, supplyID int64) ([]model.InventoryMovement, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	out := []model.InventoryMovement{}
	for _, m := range s.movements {
		if m.SupplyID == supplyID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, sup *model.Supply) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	s.nextSupplyID++
	sup.ID = s.nextSupplyID
	s.supplies[sup.ID] = *sup
	return nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*model.Supply, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	sup, ok := s.supplies[id]
	if !ok {
		return nil, model.ErrSupplyNotFound
	}
	return &sup, nil
}

func (s *Store) FindAll(ctx context.Context) ([]model.Supply, error) {
	return s.filter(ctx, func(model.Supply) bool { return true })
}

func (s *Store) FindByCategory(ctx context.Context, category string) ([]model.Supply, error) {
	return s.filter(ctx, func(sup model.Supply) bool { return sup.Category == category })
}

func (s *Store) filter(ctx context.Context, keep func(model.Supply) bool) ([]model.Supply, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.unlock()

	out := []model.Supply{}
	for _, sup := range s.supplies {
		if keep(sup) {
			out = append(out, sup)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Update(ctx context.Context, sup *model.Supply) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	cur, ok := s.supplies[sup.ID]
	if !ok {
		return model.ErrSupplyNotFound
	}
	sup.CreatedAt = cur.CreatedAt
	s.supplies[sup.ID] = *sup
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.unlock()

	if _, ok := s.supplies[id]; !ok {
		return model.ErrSupplyNotFound
	}
	delete(s.supplies, id)
	return nil
}
