package http

import (
	"net/http"

	"github.com/atinyakov/HorosCase/internal/metrics"
	"github.com/atinyakov/HorosCase/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups the handlers mounted by NewRouter.
type Handlers struct {
	Auth      *AuthHandler
	Cases     *CaseHandler
	Inventory *InventoryHandler
	Wallet    *WalletHandler
	Admin     *AdminHandler
	Health    *HealthHandler
}

// NewRouter constructs and returns an HTTP handler that serves the
// case-opening API.
//
// Routes:
//
//	GET  /healthz                         → Health.Healthz
//	GET  /metrics                         → Prometheus exposition
//	POST /api/register                    → Auth.Register
//	POST /api/verify-code                 → Auth.VerifyCode
//	POST /api/login                       → Auth.Login
//	GET  /api/cases                       → Cases.List
//	GET  /api/cases/{id}                  → Cases.Get
//	GET  /api/verify                      → Auth.Verify        (bearer)
//	POST /api/logout                      → Auth.Logout        (bearer)
//	POST /api/cases/{id}/open             → Cases.Open         (bearer)
//	GET  /api/inventory                   → Inventory.List     (bearer)
//	POST /api/inventory/{itemID}/sell     → Inventory.Sell     (bearer)
//	POST /api/inventory/{itemID}/gift     → Inventory.Gift     (bearer)
//	POST /api/wallet/deposit              → Wallet.Deposit     (bearer)
//	GET  /api/wallet/history              → Wallet.History     (bearer)
//	GET  /api/admin/stats                 → Admin.Stats        (bearer, admin)
//	POST /api/admin/stats/reset           → Admin.ResetCounter (bearer, admin)
//	GET  /api/admin/cases/{id}/fairness   → Admin.Fairness     (bearer, admin)
//
// verifier checks bearer tokens and roles re-reads the caller's role on
// every admin request.
func NewRouter(
	h Handlers,
	verifier middleware.TokenVerifier,
	roles middleware.RoleChecker,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(middleware.Gzip)

	r.Get("/healthz", h.Health.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Only allow requests with Content-Type: application/json
		r.Use(chiMiddleware.AllowContentType("application/json"))

		// Public endpoints
		r.Post("/register", h.Auth.Register)
		r.Post("/verify-code", h.Auth.VerifyCode)
		r.Post("/login", h.Auth.Login)
		r.Get("/cases", h.Cases.List)
		r.Get("/cases/{id}", h.Cases.Get)

		// Protected group: requires a valid session token
		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(verifier))

			r.Get("/verify", h.Auth.Verify)
			r.Post("/logout", h.Auth.Logout)
			r.Post("/cases/{id}/open", h.Cases.Open)

			r.Get("/inventory", h.Inventory.List)
			r.Post("/inventory/{itemID}/sell", h.Inventory.Sell)
			r.Post("/inventory/{itemID}/gift", h.Inventory.Gift)

			r.Post("/wallet/deposit", h.Wallet.Deposit)
			r.Get("/wallet/history", h.Wallet.History)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(roles))
				r.Get("/stats", h.Admin.Stats)
				r.Post("/stats/reset", h.Admin.ResetCounter)
				r.Get("/cases/{id}/fairness", h.Admin.Fairness)
			})
		})
	})

	return r
}
