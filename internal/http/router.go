package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/sentrolokal/barangay/internal/barangay"
	"github.com/sentrolokal/barangay/internal/config"
	httpmiddleware "github.com/sentrolokal/barangay/internal/http/middleware"
	"github.com/sentrolokal/barangay/internal/request"
	"github.com/sentrolokal/barangay/internal/service"
)

// Handler groups the services behind the HTTP surface.
type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	identity      *service.IdentityService
	users         *service.UsersService
	requests      *request.Service
	barangays     *barangay.Service
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	devCookies    bool
}

// Dependencies carries everything the router needs wired up.
type Dependencies struct {
	Config    *config.Config
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Identity  *service.IdentityService
	Users     *service.UsersService
	Requests  *request.Service
	Barangays *barangay.Service
}

// NewRouter returns the configured router.
func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config

	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	h := &Handler{
		cfg:           cfg,
		pool:          deps.Pool,
		redis:         deps.Redis,
		identity:      deps.Identity,
		users:         deps.Users,
		requests:      deps.Requests,
		barangays:     deps.Barangays,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		devCookies:    devCookies,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Post("/auth/signup", h.Signup)
		public.Post("/auth/login", h.Login)
		public.Post("/auth/logout", h.Logout)
		public.Get("/verify/{token}/{userID}", h.VerifyEmail)
		public.Post("/auth/resend-verification", h.ResendVerification)
		public.Post("/auth/forgot-password", h.ForgotPassword)
		public.Post("/auth/verify-otp", h.VerifyOTP)
		public.Post("/auth/reset-password", h.ResetPassword)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(h.identity.JWT()))
		private.Use(httpmiddleware.UserRateLimit(h.authLimiter))

		private.Get("/me", h.Me)

		private.Route("/document-requests", func(dr chi.Router) {
			dr.With(httpmiddleware.RequireOperation(service.OpViewRequestFeed)).
				Get("/", h.ListDocumentRequests)
			dr.With(httpmiddleware.RequireOperation(service.OpSubmitRequests)).
				Post("/{type}", h.CreateDocumentRequest)
			dr.With(httpmiddleware.RequireOperation(service.OpViewRequestFeed)).
				Get("/{type}/{id}", h.GetDocumentRequest)
			dr.With(httpmiddleware.RequireOperation(service.OpReviewRequests)).
				Patch("/{type}/{id}/status", h.UpdateDocumentRequestStatus)
		})

		private.Route("/users", func(u chi.Router) {
			u.Use(httpmiddleware.RequireOperation(service.OpManageUsers))
			u.Get("/", h.ListUsers)
			u.Post("/", h.CreateUser)
			u.Patch("/{userID}/verify", h.VerifyUser)
			u.Patch("/{userID}/reject", h.RejectUser)
			u.Patch("/{userID}/deactivate", h.DeactivateUser)
			u.Patch("/{userID}/activate", h.ActivateUser)
		})

		private.Route("/barangays", func(b chi.Router) {
			b.Use(httpmiddleware.RequireOperation(service.OpListBarangays))
			b.Get("/", h.ListBarangays)
			b.Post("/", h.CreateBarangay)
		})
	})

	return r
}

// Health reports process liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Ready checks the database and Redis round trips.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.pool.Ping(ctx); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "database unavailable", nil)
		return
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "redis unavailable", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
