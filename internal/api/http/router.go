package http

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"wastebank-backend/internal/health"
	"wastebank-backend/internal/metrics"
	"wastebank-backend/internal/ratelimit"
	"wastebank-backend/internal/security"
	"wastebank-backend/internal/service"
	"wastebank-backend/internal/storage"
)

// Services are the application operations the HTTP layer exposes.
type Services struct {
	Auth         service.AuthService
	Users        service.UserService
	Locations    service.LocationService
	Categories   service.CategoryService
	Rewards      service.RewardService
	Transactions service.TransactionService
	Redemptions  service.RedemptionService
	Audit        service.AuditService
	Dashboard    service.DashboardService
}

// Options carries the transport settings taken from configuration.
type Options struct {
	AllowedOrigins []string
	SecureCookies  bool
	MaxUploadBytes int64
	AllowedTypes   []string
}

// Handler serves the JSON API.
type Handler struct {
	services Services
	tokens   security.TokenManager
	limiter  ratelimit.Limiter
	blobs    storage.BlobStore
	health   *health.Checker
	opts     Options
}

func NewHandler(services Services, tokens security.TokenManager, limiter ratelimit.Limiter,
	blobs storage.BlobStore, checker *health.Checker, opts Options) *Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	return &Handler{
		services: services,
		tokens:   tokens,
		limiter:  limiter,
		blobs:    blobs,
		health:   checker,
		opts:     opts,
	}
}

// Router builds the route table. Fixed paths are registered before their
// {id} siblings so that mux matches them first.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(authMiddleware(h.tokens))
	r.Use(metrics.Middleware)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/me", h.Me).Methods(http.MethodGet)

	api.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", h.GetUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", h.UpdateUser).Methods(http.MethodPut)
	api.HandleFunc("/users/{id}", h.DeleteUser).Methods(http.MethodDelete)
	api.HandleFunc("/leaderboard", h.Leaderboard).Methods(http.MethodGet)

	api.HandleFunc("/locations", h.ListLocations).Methods(http.MethodGet)
	api.HandleFunc("/locations", h.CreateLocation).Methods(http.MethodPost)
	api.HandleFunc("/locations/{id}", h.GetLocation).Methods(http.MethodGet)
	api.HandleFunc("/locations/{id}", h.UpdateLocation).Methods(http.MethodPut)
	api.HandleFunc("/locations/{id}", h.DeleteLocation).Methods(http.MethodDelete)

	api.HandleFunc("/waste/categories", h.ListCategories).Methods(http.MethodGet)
	api.HandleFunc("/waste/categories", h.CreateCategory).Methods(http.MethodPost)
	api.HandleFunc("/waste/categories/{id}", h.UpdateCategory).Methods(http.MethodPut)
	api.HandleFunc("/waste/categories/{id}", h.DeleteCategory).Methods(http.MethodDelete)

	api.HandleFunc("/waste/transactions", h.ListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/waste/transactions", h.CreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/waste/transactions/{id}", h.GetTransaction).Methods(http.MethodGet)
	api.HandleFunc("/waste/transactions/{id}/process", h.ProcessTransaction).Methods(http.MethodPut)
	api.HandleFunc("/waste/transactions/{id}/cancel", h.CancelTransaction).Methods(http.MethodPut)

	api.HandleFunc("/rewards", h.ListRewards).Methods(http.MethodGet)
	api.HandleFunc("/rewards", h.CreateReward).Methods(http.MethodPost)
	api.HandleFunc("/rewards/redeem", h.Redeem).Methods(http.MethodPost)
	api.HandleFunc("/rewards/redeem-request", h.RequestRedemption).Methods(http.MethodPost)
	api.HandleFunc("/rewards/history", h.RedemptionHistory).Methods(http.MethodGet)
	api.HandleFunc("/rewards/transactions", h.ListRedemptions).Methods(http.MethodGet)
	api.HandleFunc("/rewards/transactions/{id}/approve", h.ApproveRedemption).Methods(http.MethodPost)
	api.HandleFunc("/rewards/transactions/{id}/reject", h.RejectRedemption).Methods(http.MethodPost)
	api.HandleFunc("/rewards/{id}", h.GetReward).Methods(http.MethodGet)
	api.HandleFunc("/rewards/{id}", h.UpdateReward).Methods(http.MethodPut)
	api.HandleFunc("/rewards/{id}", h.DeleteReward).Methods(http.MethodDelete)

	api.HandleFunc("/audit-logs", h.ListAuditLogs).Methods(http.MethodGet)

	api.HandleFunc("/dashboard/customer-summary", h.CustomerSummary).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/reports", h.Reports).Methods(http.MethodGet)

	api.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
	api.HandleFunc("/files/{key}", h.ServeFile).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	c := cors.New(cors.Options{
		AllowedOrigins:   h.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	var handler http.Handler = r
	handler = c.Handler(handler)
	handler = requestLogger(handler)
	handler = middleware.Recoverer(handler)
	handler = middleware.RealIP(handler)
	handler = middleware.RequestID(handler)
	return handler
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, Envelope{Status: "error", Message: "Route not found"})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, Envelope{Status: "error", Message: "Method not allowed"})
}
