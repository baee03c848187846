package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/fekuna/omnipos-supply-service/internal/httpx"
	"github.com/fekuna/omnipos-supply-service/internal/inventory"
	"github.com/fekuna/omnipos-supply-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-supply-service/internal/model"
	"github.com/fekuna/omnipos-supply-service/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type HTTPHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
	strict bool
}

// NewHTTPHandler builds the /api/inventory handler. With strict unset every
// inventory rule violation is answered with 400; with strict set each kind
// gets its own status.
func NewHTTPHandler(uc inventory.UseCase, log logger.ZapLogger, strict bool) *HTTPHandler {
	return &HTTPHandler{
		uc:     uc,
		logger: log,
		strict: strict,
	}
}

func (h *HTTPHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/in", h.StockIn)
	r.Post("/out", h.StockOut)
	r.Get("/supply/{id}", h.ListBySupply)
}

func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.uc.ListMovements(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, dto.NewMovementResponses(items))
}

func (h *HTTPHandler) ListBySupply(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}
	items, err := h.uc.ListMovementsBySupply(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, dto.NewMovementResponses(items))
}

func (h *HTTPHandler) StockIn(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.uc.StockIn)
}

func (h *HTTPHandler) StockOut(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.uc.StockOut)
}

type moveFunc func(ctx context.Context, input *dto.MovementInput) (*model.InventoryMovement, error)

func (h *HTTPHandler) move(w http.ResponseWriter, r *http.Request, fn moveFunc) {
	var req dto.MovementRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, httpx.DecodeStatus(err), err)
		return
	}

	m, err := fn(r.Context(), req.Input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusCreated, dto.NewMovementResponse(m))
}

func (h *HTTPHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err, h.strict)
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Inventory request failed", fields...)
	} else {
		h.logger.Warn("Inventory request rejected", fields...)
	}

	body := map[string]any{"error": err.Error()}
	var ise *inventory.InsufficientStockError
	if errors.As(err, &ise) {
		body["available"] = ise.Available
	}
	httpx.RespondJSON(w, status, body)
}

// StatusFor maps an inventory error onto an HTTP status code.
func StatusFor(err error, strict bool) int {
	switch {
	case errors.Is(err, inventory.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, inventory.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case !inventory.IsDomainError(err):
		return http.StatusInternalServerError
	case !strict:
		return http.StatusBadRequest
	case errors.Is(err, inventory.ErrSupplyNotFound):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrInsufficientStock):
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}
