package appointments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/platform/httpx"
	"github.com/firewatch/firewatch/internal/rbac"
	"github.com/firewatch/firewatch/internal/shared"
)

// Handler exposes appointment endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbacMW rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbacMW, validator: httpx.NewValidator()}
}

// MountRoutes registers appointment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.With(h.rbac.RequireCreate(access.Appointments)).Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, err := shared.CallerFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.List(r.Context(), p, httpx.ListParams(r))
	if err != nil {
		httpx.Fail(w, h.logger, "list appointments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := shared.CallerFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	appt, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		httpx.Fail(w, h.logger, "get appointment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	p, err := shared.CallerFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in CreateInput
	if !httpx.Bind(w, r, h.validator, &in) {
		return
	}
	appt, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		httpx.Fail(w, h.logger, "create appointment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, appt)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	p, err := shared.CallerFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	var in UpdateInput
	if !httpx.Bind(w, r, h.validator, &in) {
		return
	}
	appt, err := h.service.Update(r.Context(), p, id, in)
	if err != nil {
		httpx.Fail(w, h.logger, "update appointment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	p, err := shared.CallerFromContext(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, ok := httpx.PathID(r, "id")
	if !ok {
		httpx.RespondError(w, shared.ErrNotFound)
		return
	}
	if err := h.service.Delete(r.Context(), p, id); err != nil {
		httpx.Fail(w, h.logger, "delete appointment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
