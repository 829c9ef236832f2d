package maintenance

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

// Handler exposes maintenance card endpoints.
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

// MountRoutes registers maintenance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.With(h.rbac.RequireCreate(access.Maintenance)).Post("/", h.create)
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
		httpx.Fail(w, h.logger, "list maintenance cards", err)
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
	card, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		httpx.Fail(w, h.logger, "get maintenance card", err)
		return
	}
	httpx.JSON(w, http.StatusOK, card)
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
	card, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		httpx.Fail(w, h.logger, "create maintenance card", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, card)
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
	card, err := h.service.Update(r.Context(), p, id, in)
	if err != nil {
		httpx.Fail(w, h.logger, "update maintenance card", err)
		return
	}
	httpx.JSON(w, http.StatusOK, card)
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
		httpx.Fail(w, h.logger, "delete maintenance card", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
