package sync

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tillbridge/tillbridge/internal/platform/httpx"
)

// Handler serves the sync endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers sync routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/run", h.run)
	r.Post("/pull", h.pull)
	r.Post("/push", h.push)
	r.Get("/status", h.status)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Run(r.Context())
	if err != nil {
		h.logger.Error("sync run", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, result)
}

func (h *Handler) pull(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Pull(r.Context())
	if err != nil {
		h.logger.Error("sync pull", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, result)
}

func (h *Handler) push(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Push(r.Context())
	if err != nil {
		h.logger.Error("sync push", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, result)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		h.logger.Error("sync status", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, status)
}
