package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-supply-service/internal/inventory"
	"github.com/fekuna/omnipos-supply-service/internal/model"
	"github.com/google/uuid"
)

const EventMovementRecorded = "InventoryMovementRecorded"

type MovementEvent struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   MovementPayload `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type MovementPayload struct {
	ID              int64     `json:"id"`
	SupplyID        int64     `json:"supply_id"`
	Type            string    `json:"type"`
	Quantity        int64     `json:"quantity"`
	TransactionDate time.Time `json:"transaction_date"`
	Note            string    `json:"note"`
}

// Producer is the subset of broker.KafkaProducer used here.
type Producer interface {
	Publish(ctx context.Context, key, value []byte) error
}

type KafkaPublisher struct {
	producer Producer
	now      func() time.Time
}

func NewKafkaPublisher(p Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: p, now: time.Now}
}

func NewMovementEvent(m *model.InventoryMovement, now time.Time) MovementEvent {
	return MovementEvent{
		EventID:   uuid.New().String(),
		EventType: EventMovementRecorded,
		Payload: MovementPayload{
			ID:              m.ID,
			SupplyID:        m.SupplyID,
			Type:            m.Direction.String(),
			Quantity:        m.Quantity,
			TransactionDate: m.OccurredAt,
			Note:            m.Note,
		},
		Timestamp: now,
	}
}

// Publish keys the message by supply id so that a consumer sees the movements
// of one supply in commit order.
func (p *KafkaPublisher) Publish(ctx context.Context, m *model.InventoryMovement) error {
	value, err := json.Marshal(NewMovementEvent(m, p.now()))
	if err != nil {
		return err
	}
	key := []byte(strconv.FormatInt(m.SupplyID, 10))
	return p.producer.Publish(ctx, key, value)
}

// Func adapts a plain function to inventory.Publisher.
type Func func(ctx context.Context, m *model.InventoryMovement) error

func (f Func) Publish(ctx context.Context, m *model.InventoryMovement) error {
	return f(ctx, m)
}

// Multi hands every movement to each publisher in turn. All publishers are
// called even if one fails; the failures are joined.
type Multi []inventory.Publisher

func (ps Multi) Publish(ctx context.Context, m *model.InventoryMovement) error {
	var errs []error
	for _, p := range ps {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
