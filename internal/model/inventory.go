package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Direction tells whether a movement added stock (IN) or removed it (OUT).
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionIn, DirectionOut:
		return Direction(s), nil
	}
	return "", fmt.Errorf("unknown movement direction %q", s)
}

func (d Direction) String() string { return string(d) }

func (d Direction) Value() (driver.Value, error) {
	if _, err := ParseDirection(string(d)); err != nil {
		return nil, err
	}
	return string(d), nil
}

func (d *Direction) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("scan direction: unsupported type %T", src)
	}
	parsed, err := ParseDirection(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// InventoryMovement is an append-only record of a stock change. Rows live in
// the inventory_transactions table.
type InventoryMovement struct {
	ID         int64     `db:"id"`
	SupplyID   int64     `db:"supply_id"`
	Direction  Direction `db:"type"`
	Quantity   int64     `db:"quantity"`
	OccurredAt time.Time `db:"transaction_date"`
	Note       string    `db:"note"`
}
