package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/appointments"
	"github.com/firewatch/firewatch/internal/auth"
	"github.com/firewatch/firewatch/internal/devices"
	"github.com/firewatch/firewatch/internal/institutions"
	"github.com/firewatch/firewatch/internal/isgmembers"
	"github.com/firewatch/firewatch/internal/maintenance"
	"github.com/firewatch/firewatch/internal/notifications"
	"github.com/firewatch/firewatch/internal/observability"
	"github.com/firewatch/firewatch/internal/offerrequests"
	"github.com/firewatch/firewatch/internal/offers"
	"github.com/firewatch/firewatch/internal/platform/httpx"
	"github.com/firewatch/firewatch/internal/rbac"
	"github.com/firewatch/firewatch/internal/shared"
	"github.com/firewatch/firewatch/internal/users"
	"github.com/firewatch/firewatch/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Resolver       *auth.Resolver
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	AuthHandler          *auth.Handler
	DevicesHandler       *devices.Handler
	AppointmentsHandler  *appointments.Handler
	MaintenanceHandler   *maintenance.Handler
	OffersHandler        *offers.Handler
	OfferRequestsHandler *offerrequests.Handler
	NotificationsHandler *notifications.Handler
	InstitutionsHandler  *institutions.Handler
	UsersHandler         *users.Handler
	IsgMembersHandler    *isgmembers.Handler
	JobHandler           *jobs.Handler
}

// NewRouter constructs the chi.Router with firewatch defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondError(w, shared.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	authn := auth.Middleware{Resolver: params.Resolver}
	r.Group(func(r chi.Router) {
		r.Use(authn.RequirePrincipal)

		r.Route("/devices", params.DevicesHandler.MountRoutes)
		r.Route("/appointments", params.AppointmentsHandler.MountRoutes)
		r.Route("/maintenance", params.MaintenanceHandler.MountRoutes)
		r.Route("/offers", params.OffersHandler.MountRoutes)
		r.Route("/offer-requests", params.OfferRequestsHandler.MountRoutes)
		r.Route("/notifications", params.NotificationsHandler.MountRoutes)
		r.Route("/institutions", params.InstitutionsHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/isg-members", params.IsgMembersHandler.MountRoutes)

		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.RBACMiddleware.RequireRoles(access.RoleAdmin))
				params.JobHandler.MountRoutes(r)
			})
		}
	})

	return r
}
