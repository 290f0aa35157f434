package batch

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tokoledger/tokoledger/internal/platform/httpx"
)

// Handler wires HTTP endpoints for batch management.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers batch routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/batches", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/available", h.listAvailable)
		r.Get("/{id}", h.show)
		r.Delete("/{id}", h.delete)
	})
}

type createBatchRequest struct {
	Code            string          `json:"code" validate:"required,max=64"`
	ProductName     string          `json:"productName" validate:"required,max=255"`
	PurchaseDate    *time.Time      `json:"purchaseDate,omitempty"`
	CostPerUnit     decimal.Decimal `json:"costPerUnit"`
	SellingPrice    decimal.Decimal `json:"sellingPrice"`
	InitialQuantity int             `json:"initialQuantity" validate:"required,gt=0"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, err.Error())
		return
	}

	input := CreateInput{
		Code:            req.Code,
		ProductName:     req.ProductName,
		CostPerUnit:     req.CostPerUnit,
		SellingPrice:    req.SellingPrice,
		InitialQuantity: req.InitialQuantity,
	}
	if req.PurchaseDate != nil {
		input.PurchaseDate = *req.PurchaseDate
	}

	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	batches, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batches)
}

func (h *Handler) listAvailable(w http.ResponseWriter, r *http.Request) {
	batches, err := h.service.ListAvailable(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batches)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, "invalid batch id")
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, "invalid batch id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, httpx.KindBatchNotFound, err.Error())
	case errors.Is(err, ErrDuplicateCode):
		httpx.Fail(w, http.StatusConflict, httpx.KindDuplicate, err.Error())
	case errors.Is(err, ErrInUse):
		httpx.Fail(w, http.StatusConflict, httpx.KindBatchInUse, err.Error())
	default:
		h.logger.Error("batch request failed", slog.Any("error", err))
		httpx.Internal(w)
	}
}
