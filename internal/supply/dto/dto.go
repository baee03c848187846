package dto

import (
	"github.com/fekuna/omnipos-supply-service/internal/httpx"
	"github.com/fekuna/omnipos-supply-service/internal/model"
	"github.com/shopspring/decimal"
)

// SupplyRequest is the body of POST and PUT /api/supplies. unitPrice may be
// a JSON number or a decimal string.
type SupplyRequest struct {
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Category  string          `json:"category"`
}

func (r *SupplyRequest) Input() *SupplyInput {
	return &SupplyInput{
		Name:      r.Name,
		Quantity:  r.Quantity,
		UnitPrice: r.UnitPrice,
		Category:  r.Category,
	}
}

type SupplyResponse struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice string          `json:"unitPrice"`
	Category  string          `json:"category"`
	CreatedAt httpx.LocalTime `json:"createdAt"`
	UpdatedAt httpx.LocalTime `json:"updatedAt"`
}

func NewSupplyResponse(s *model.Supply) SupplyResponse {
	return SupplyResponse{
		ID:        s.ID,
		Name:      s.Name,
		Quantity:  s.Quantity,
		UnitPrice: s.UnitPrice.StringFixed(2),
		Category:  s.Category,
		CreatedAt: httpx.LocalTime(s.CreatedAt),
		UpdatedAt: httpx.LocalTime(s.UpdatedAt),
	}
}

func NewSupplyResponses(items []model.Supply) []SupplyResponse {
	out := make([]SupplyResponse, len(items))
	for i := range items {
		out[i] = NewSupplyResponse(&items[i])
	}
	return out
}
