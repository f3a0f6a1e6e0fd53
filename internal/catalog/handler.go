package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tillbridge/tillbridge/internal/platform/httpx"
)

// Handler serves the read-only catalog endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/items", h.searchItems)
	r.Get("/items/{code}", h.getItem)
	r.Get("/scan/{barcode}", h.scan)
	r.Get("/payment-methods", h.paymentMethods)
}

func (h *Handler) searchItems(w http.ResponseWriter, r *http.Request) {
	req := SearchItemsRequest{
		Query: r.URL.Query().Get("q"),
		Group: r.URL.Query().Get("group"),
		Limit: 50,
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			req.Limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			req.Offset = parsed
		}
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	items, err := h.service.Search(r.Context(), req)
	if err != nil {
		h.logger.Error("search items", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, items)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	item, err := h.service.Get(r.Context(), code)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, item)
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	barcode := chi.URLParam(r, "barcode")
	result, err := h.service.Scan(r.Context(), barcode)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, result)
}

func (h *Handler) paymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.service.PaymentMethods(r.Context())
	if err != nil {
		h.logger.Error("list payment methods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, methods)
}
