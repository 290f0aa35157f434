package profitshare

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tokoledger/tokoledger/internal/platform/db"
	"github.com/tokoledger/tokoledger/internal/platform/httpx"
	"github.com/tokoledger/tokoledger/internal/shared"
)

// Handler wires HTTP endpoints for profit distributions.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers profit-share routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/profit-shares", func(r chi.Router) {
		r.Post("/", h.execute)
		r.Get("/", h.list)
	})
}

type executeRequest struct {
	Month      int `json:"month" validate:"required,min=1,max=12"`
	Year       int `json:"year" validate:"required,min=2020"`
	OwnerCount int `json:"ownerCount" validate:"required,min=1"`
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, err.Error())
		return
	}

	share, err := h.service.Execute(r.Context(), req.Month, req.Year, req.OwnerCount)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, share)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	shares, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shares)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidPeriod):
		httpx.Fail(w, http.StatusBadRequest, httpx.KindInvalidPeriod, err.Error())
	case errors.Is(err, ErrInvalidOwnerCount):
		httpx.Fail(w, http.StatusBadRequest, httpx.KindValidation, err.Error())
	case errors.Is(err, ErrAlreadyExecuted):
		httpx.Fail(w, http.StatusConflict, httpx.KindAlreadyExecuted, err.Error())
	case errors.Is(err, db.ErrConcurrencyConflict):
		httpx.Fail(w, http.StatusConflict, httpx.KindConcurrencyConflict, err.Error())
	default:
		h.logger.Error("profit share request failed", slog.Any("error", err))
		httpx.Internal(w)
	}
}
