package till

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/tillbridge/tillbridge/internal/platform/httpx"
)

// Handler serves the till session endpoints.
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

// MountRoutes registers till routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sessions", h.openSession)
	r.Get("/sessions", h.listSessions)
	r.Get("/sessions/current", h.currentSession)
	r.Post("/sessions/current/opening", h.createOpening)
	r.Post("/sessions/current/close", h.closeSession)
	r.Get("/sessions/{id}", h.getSession)
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	session, err := h.service.Open(r.Context(), req)
	if err != nil {
		h.logger.Error("open session", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, session)
}

func (h *Handler) createOpening(w http.ResponseWriter, r *http.Request) {
	var req CreateOpeningRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	session, err := h.service.CreateOpening(r.Context(), req)
	if err != nil {
		h.logger.Error("create opening entry", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, session)
}

func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Current(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, session)
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	var req CloseSessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	summary, err := h.service.Close(r.Context(), req)
	if err != nil {
		h.logger.Error("close session", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, summary)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "session id must be a UUID")
		return
	}

	summary, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, summary)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	sessions, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list sessions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, sessions)
}
