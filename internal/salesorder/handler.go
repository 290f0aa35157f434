package salesorder

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tokoledger/tokoledger/internal/batch"
	"github.com/tokoledger/tokoledger/internal/platform/db"
	"github.com/tokoledger/tokoledger/internal/platform/httpx"
	"github.com/tokoledger/tokoledger/internal/pricing"
	"github.com/tokoledger/tokoledger/internal/shared"
)

type orderService interface {
	Create(ctx context.Context, input CreateInput) (SalesOrder, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (SalesOrder, error)
	List(ctx context.Context, filter ListFilter) ([]SalesOrder, error)
}

// Handler wires HTTP endpoints for the sales order engine.
type Handler struct {
	logger   *slog.Logger
	service  orderService
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service orderService) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers sales order routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sales-orders", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Delete("/{id}", h.delete)
	})
}

type createOrderLineRequest struct {
	BatchID             int64           `json:"batchId" validate:"required,gt=0"`
	QuantitySold        int             `json:"quantitySold" validate:"required,gt=0"`
	SellingPricePerUnit decimal.Decimal `json:"sellingPricePerUnit"`
	DiscountType        string          `json:"discountType" validate:"omitempty,oneof=NONE PERCENT AMOUNT"`
	DiscountValue       decimal.Decimal `json:"discountValue"`
}

type createOrderRequest struct {
	CustomerName *string                  `json:"customerName,omitempty" validate:"omitempty,max=255"`
	OrderDate    *time.Time               `json:"orderDate,omitempty"`
	LineItems    []createOrderLineRequest `json:"lineItems" validate:"required,min=1,dive"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, err.Error())
		return
	}

	input := CreateInput{
		CustomerName:   req.CustomerName,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if req.OrderDate != nil {
		input.OrderDate = *req.OrderDate
	}
	for _, line := range req.LineItems {
		discountType := pricing.DiscountType(line.DiscountType)
		if line.DiscountType == "" {
			discountType = pricing.DiscountNone
		}
		input.Lines = append(input.Lines, CreateLineInput{
			BatchID:             line.BatchID,
			Quantity:            line.QuantitySold,
			SellingPricePerUnit: line.SellingPricePerUnit,
			Discount:            pricing.Discount{Type: discountType, Value: line.DiscountValue},
		})
	}

	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{}
	if raw := r.URL.Query().Get("startDate"); raw != "" {
		t, err := parseDateParam(raw)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, "invalid startDate")
			return
		}
		filter.From = &t
	}
	if raw := r.URL.Query().Get("endDate"); raw != "" {
		t, err := parseDateParam(raw)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, "invalid endDate")
			return
		}
		// Date-only bounds are inclusive of the whole day.
		if len(raw) == len("2006-01-02") {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		filter.To = &t
	}

	orders, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, "invalid order id")
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, "invalid order id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var stockErr *batch.InsufficientStockError
	switch {
	case errors.Is(err, ErrInvalidInput):
		httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, err.Error())
	case errors.As(err, &stockErr):
		httpx.Fail(w, http.StatusConflict, httpx.KindInsufficientStock, stockErr.Error())
	case errors.Is(err, batch.ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, httpx.KindBatchNotFound, err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, httpx.KindOrderNotFound, err.Error())
	case errors.Is(err, ErrLocked):
		httpx.Fail(w, http.StatusConflict, httpx.KindOrderLocked, err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Fail(w, http.StatusConflict, httpx.KindDuplicate, err.Error())
	case errors.Is(err, db.ErrConcurrencyConflict):
		httpx.Fail(w, http.StatusConflict, httpx.KindConcurrencyConflict, "concurrent update, retry the request")
	default:
		h.logger.Error("sales order request failed", slog.Any("error", err))
		httpx.Internal(w)
	}
}

func parseDateParam(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
