package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/firewatch/firewatch/internal/access"
	"github.com/firewatch/firewatch/internal/platform/httpx"
	"github.com/firewatch/firewatch/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	middleware     Middleware
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, resolver *Resolver) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		middleware:     Middleware{Resolver: resolver},
		validator:      httpx.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/verify", h.handleVerify)
	r.Post("/resend", h.handleResend)
	r.Post("/logout", h.handleLogout)
	r.Get("/csrf", h.handleCSRF)
	r.With(h.middleware.RequirePrincipal).Get("/me", h.handleMe)
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type verifyRequest struct {
	Email   string  `json:"email" validate:"omitempty,email"`
	Code    string  `json:"code" validate:"required,len=6,numeric"`
	Purpose Purpose `json:"purpose" validate:"required,oneof=REGISTER LOGIN"`
}

type resendRequest struct {
	Email   string  `json:"email" validate:"required,email"`
	Purpose Purpose `json:"purpose" validate:"required,oneof=REGISTER LOGIN"`
}

type verificationResponse struct {
	Email        string  `json:"email"`
	Verification Purpose `json:"verification"`
}

type loginResponse struct {
	Principal *access.Principal `json:"principal"`
	Redirect  string            `json:"redirect"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httpx.Bind(w, r, h.validator, &req) {
		return
	}
	account, err := h.service.Register(r.Context(), RegisterInput(req))
	if err != nil {
		h.fail(w, "register", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, verificationResponse{Email: account.Email, Verification: PurposeRegister})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httpx.Bind(w, r, h.validator, &req) {
		return
	}
	account, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetPending(account.Email)
	}
	httpx.JSON(w, http.StatusAccepted, verificationResponse{Email: account.Email, Verification: PurposeLogin})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !httpx.Bind(w, r, h.validator, &req) {
		return
	}
	sess := shared.SessionFromContext(r.Context())
	email := req.Email
	if email == "" && sess != nil {
		email = sess.Pending()
	}
	if email == "" {
		httpx.FieldProblem(w, map[string]string{"email": "required"})
		return
	}

	if req.Purpose == PurposeRegister {
		if err := h.service.VerifyRegistration(r.Context(), email, req.Code); err != nil {
			h.fail(w, "verify registration", err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "verified"})
		return
	}

	result, err := h.service.VerifyLogin(r.Context(), email, req.Code)
	if err != nil {
		h.fail(w, "verify login", err)
		return
	}
	if sess != nil {
		h.sessionManager.Renew(sess)
		sess.SetUser(result.Account.ID)
	}
	httpx.JSON(w, http.StatusOK, loginResponse{
		Principal: result.Principal,
		Redirect:  result.Redirect,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

func (h *Handler) handleResend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if !httpx.Bind(w, r, h.validator, &req) {
		return
	}
	if err := h.service.Resend(r.Context(), req.Email, req.Purpose); err != nil {
		h.fail(w, "resend code", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		h.fail(w, "csrf token", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"principal": p,
		"redirect":  p.Role.HomePath(),
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
