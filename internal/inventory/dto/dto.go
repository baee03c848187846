package dto

import (
	"github.com/fekuna/omnipos-supply-service/internal/httpx"
	"github.com/fekuna/omnipos-supply-service/internal/model"
)

// MovementRequest is the body of POST /api/inventory/in and /out. The
// direction comes from the route; Type is accepted and ignored.
type MovementRequest struct {
	SupplyID int64  `json:"supplyId"`
	Quantity int64  `json:"quantity"`
	Note     string `json:"note"`
	Type     string `json:"type,omitempty"`
}

func (r *MovementRequest) Input() *MovementInput {
	return &MovementInput{
		SupplyID: r.SupplyID,
		Quantity: r.Quantity,
		Note:     r.Note,
	}
}

type MovementResponse struct {
	ID              int64           `json:"id"`
	SupplyID        int64           `json:"supplyId"`
	Type            string          `json:"type"`
	Quantity        int64           `json:"quantity"`
	TransactionDate httpx.LocalTime `json:"transactionDate"`
	Note            string          `json:"note"`
}

func NewMovementResponse(m *model.InventoryMovement) MovementResponse {
	return MovementResponse{
		ID:              m.ID,
		SupplyID:        m.SupplyID,
		Type:            m.Direction.String(),
		Quantity:        m.Quantity,
		TransactionDate: httpx.LocalTime(m.OccurredAt),
		Note:            m.Note,
	}
}

func NewMovementResponses(ms []model.InventoryMovement) []MovementResponse {
	out := make([]MovementResponse, len(ms))
	for i := range ms {
		out[i] = NewMovementResponse(&ms[i])
	}
	return out
}
