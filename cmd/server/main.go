package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"wastebank-backend/internal/api/grpc/interceptor"
	httpapi "wastebank-backend/internal/api/http"
	"wastebank-backend/internal/config"
	"wastebank-backend/internal/health"
	"wastebank-backend/internal/jobs"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/ratelimit"
	"wastebank-backend/internal/repository"
	"wastebank-backend/internal/repository/memory"
	"wastebank-backend/internal/repository/postgres"
	"wastebank-backend/internal/repository/postgres/migrations"
	"wastebank-backend/internal/scheduler"
	"wastebank-backend/internal/security"
	"wastebank-backend/internal/service"
	"wastebank-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Waste Bank Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open store", "error", err)
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	if cfg.Bootstrap.Email != "" {
		if _, err := service.EnsureSuperAdmin(ctx, store.UserRepository, cfg.Bootstrap.Name, cfg.Bootstrap.Email, cfg.Bootstrap.Password); err != nil {
			logger.Error("Failed to bootstrap SUPERADMIN", "error", err)
			log.Fatalf("Failed to bootstrap SUPERADMIN: %v", err)
		}
	}

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, config.MustDuration(cfg.JWT.ExpiresIn))

	// Initialize Services
	auditRecorder := service.NewAuditRecorder(store.AuditRepository, cfg.Audit.BufferSize)
	services := httpapi.Services{
		Auth:         service.NewAuthService(store.UserRepository, tokenManager),
		Users:        service.NewUserService(store.UserRepository, store.LocationRepository, auditRecorder),
		Locations:    service.NewLocationService(store.LocationRepository, auditRecorder),
		Categories:   service.NewCategoryService(store.CategoryRepository, store.LocationRepository, auditRecorder),
		Rewards:      service.NewRewardService(store.RewardRepository, store.LocationRepository, auditRecorder),
		Transactions: service.NewTransactionService(store.TransactionRepository, store.UserRepository, store.CategoryRepository, store.TxManager, auditRecorder),
		Redemptions:  service.NewRedemptionService(store.UserRepository, store.RewardRepository, store.RedemptionRepository, store.TxManager, auditRecorder),
		Audit:        service.NewAuditService(store.AuditRepository),
		Dashboard:    service.NewDashboardService(store.DashboardRepository, store.UserRepository),
	}

	limiter, evicter, closeLimiter := newLimiter(ctx, cfg)
	defer closeLimiter()

	blobs, err := storage.NewLocalStore(cfg.Storage.BaseURL, cfg.Storage.UploadDir)
	if err != nil {
		logger.Error("Failed to initialize file storage", "error", err)
		log.Fatalf("Failed to initialize file storage: %v", err)
	}
	logger.Info("Using local file storage", "upload_dir", cfg.Storage.UploadDir)

	healthServer := grpchealth.NewServer()
	checker := health.NewChecker(store.HealthChecker, healthServer)
	checker.Check(ctx)

	handler := httpapi.NewHandler(services, tokenManager, limiter, blobs, checker, httpapi.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		SecureCookies:  cfg.Server.SecureCookies,
		MaxUploadBytes: cfg.Storage.MaxFileSize << 20,
		AllowedTypes:   cfg.Storage.AllowedTypes,
	})
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 2)

	// Set up gRPC health server
	var grpcServer *grpc.Server
	if addr := cfg.GetGRPCAddress(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}
		authInterceptor := interceptor.NewAuthInterceptor(tokenManager)
		grpcServer = grpc.NewServer(
			grpc.UnaryInterceptor(authInterceptor.Unary()),
			grpc.StreamInterceptor(authInterceptor.Stream()),
		)
		healthpb.RegisterHealthServer(grpcServer, healthServer)

		// Register reflection service for grpcurl
		reflection.Register(grpcServer)

		go func() {
			logger.Info("gRPC server listening", "address", addr)
			if err := grpcServer.Serve(lis); err != nil {
				serveErr <- err
			}
		}()
	}

	// Initialize Scheduler
	jobRunner := jobs.NewJobRunner(store, evicter, checker, cfg)
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		logger.Error("Failed to initialize scheduler", "error", err)
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	cronScheduler.Start()

	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		logger.Error("Server error", "error", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.MustDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	cronScheduler.Stop()
	healthServer.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	auditRecorder.Close()
	logger.Info("Server stopped. Goodbye!")
}

// openStore returns the configured backend and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, func(), error) {
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString(), cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Database connection established")

	if cfg.Database.AutoMigrate {
		if err := migrations.Apply(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return postgres.NewStore(db), func() { db.Close() }, nil
}

// newLimiter builds the login limiter. Only the in-process backend needs
// periodic eviction, so evicter is nil for Redis.
func newLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, jobs.Evicter, func()) {
	window := config.MustDuration(cfg.RateLimit.LoginWindow)

	if cfg.RateLimit.Backend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr, DB: cfg.RateLimit.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, login throttling disabled until it recovers", "addr", cfg.RateLimit.RedisAddr, "error", err)
		}
		limiter := ratelimit.NewRedisLimiter(client, "wastebank:ratelimit:", cfg.RateLimit.LoginLimit, window)
		return limiter, nil, func() { limiter.Close() }
	}

	limiter := ratelimit.NewMemoryLimiter(cfg.RateLimit.LoginLimit, window)
	return limiter, limiter, func() {}
}
