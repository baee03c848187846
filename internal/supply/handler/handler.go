package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/fekuna/omnipos-supply-service/internal/export"
	"github.com/fekuna/omnipos-supply-service/internal/httpx"
	"github.com/fekuna/omnipos-supply-service/internal/model"
	"github.com/fekuna/omnipos-supply-service/internal/supply"
	"github.com/fekuna/omnipos-supply-service/internal/supply/dto"
	"github.com/fekuna/omnipos-supply-service/pkg/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxUploadBytes = 10 << 20

type SupplyHandler struct {
	uc     supply.UseCase
	logger logger.ZapLogger
}

func NewSupplyHandler(uc supply.UseCase, log logger.ZapLogger) *SupplyHandler {
	return &SupplyHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *SupplyHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List returns every supply, or only those of ?category= when given.
func (h *SupplyHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		items []model.Supply
		err   error
	)
	if q := r.URL.Query(); q.Has("category") {
		items, err = h.uc.ListByCategory(r.Context(), q.Get("category"))
	} else {
		items, err = h.uc.ListSupplies(r.Context())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, dto.NewSupplyResponses(items))
}

func (h *SupplyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}
	s, err := h.uc.GetSupply(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, dto.NewSupplyResponse(s))
}

func (h *SupplyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.SupplyRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, httpx.DecodeStatus(err), err)
		return
	}
	s, err := h.uc.CreateSupply(r.Context(), req.Input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusCreated, dto.NewSupplyResponse(s))
}

func (h *SupplyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}
	var req dto.SupplyRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, httpx.DecodeStatus(err), err)
		return
	}
	s, err := h.uc.UpdateSupply(r.Context(), id, req.Input())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.RespondJSON(w, http.StatusOK, dto.NewSupplyResponse(s))
}

func (h *SupplyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r)
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.uc.DeleteSupply(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SupplyHandler) Export(w http.ResponseWriter, r *http.Request) {
	b, err := h.uc.ExportWorkbook(r.Context())
	if err != nil {
		h.logger.Error("Export failed", zap.Error(err))
		httpx.RespondError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+export.FileName)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *SupplyHandler) Import(w http.ResponseWriter, r *http.Request) {
	err := h.importFile(r)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err != nil {
		h.logger.Warn("Import failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Import failed: " + err.Error()))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Import successful"))
}

func (h *SupplyHandler) importFile(r *http.Request) error {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return err
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return err
	}
	defer file.Close()
	return h.uc.ImportCSV(r.Context(), file)
}

func (h *SupplyHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Supply request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	httpx.RespondError(w, status, err)
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, supply.ErrSupplyNotFound):
		return http.StatusNotFound
	case supply.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
