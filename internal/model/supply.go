package model

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// MaxQuantity is the largest on-hand count the supplies.quantity INTEGER
// column can hold.
const MaxQuantity int64 = math.MaxInt32

var ErrSupplyNotFound = errors.New("supply not found")

type Supply struct {
	ID        int64           `db:"id"`
	Name      string          `db:"name"`
	Quantity  int64           `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	Category  string          `db:"category"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}
