package report

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tokoledger/tokoledger/internal/platform/httpx"
	"github.com/tokoledger/tokoledger/internal/shared"
)

// Handler serves the reporting endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/inventory", h.inventory)
		r.Get("/monthly-profit", h.monthlyProfit)
	})
}

func (h *Handler) inventory(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.InventorySnapshot(r.Context(), r.URL.Query().Get("productName"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snapshot)
}

func (h *Handler) monthlyProfit(w http.ResponseWriter, r *http.Request) {
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, "month must be an integer")
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, "year must be an integer")
		return
	}

	summary, err := h.service.MonthlySummary(r.Context(), month, year)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidPeriod):
		httpx.Fail(w, http.StatusBadRequest, httpx.KindInvalidPeriod, err.Error())
	default:
		h.logger.Error("report request failed", slog.Any("error", err))
		httpx.Internal(w)
	}
}
