// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and
// routes, and decides:
// - Which URL patterns map to which handler functions
// - Which roles may reach which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go creates:
//
//	config.Config, repository.Store, notify.Mailer, *slog.Logger → server.New
//
// server.New creates:
//
//	notify.Hub, metrics.Metrics, auth services → services → handlers → routes
//
// This is the "composition root" pattern: every dependency is wired here, so
// the rest of the codebase only receives what it needs.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/clothconnect/internal/auth"
	"github.com/sakif/clothconnect/internal/config"
	"github.com/sakif/clothconnect/internal/handler"
	"github.com/sakif/clothconnect/internal/metrics"
	"github.com/sakif/clothconnect/internal/middleware"
	"github.com/sakif/clothconnect/internal/model"
	"github.com/sakif/clothconnect/internal/notify"
	"github.com/sakif/clothconnect/internal/repository"
	"github.com/sakif/clothconnect/internal/service"
)

// Rate limits on the unauthenticated account routes, per client IP.
const (
	loginLimit           = 5
	loginWindow          = 15 * time.Minute
	forgotPasswordLimit  = 3
	forgotPasswordWindow = time.Hour
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store. Start closes it after the HTTP server has
// drained, so in-flight requests never see a closed database.
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	store   repository.Store
	hub     *notify.Hub
	metrics *metrics.Metrics
}

// New wires every service and handler and registers the routes.
//
// Each layer only receives what it needs:
// - Services get repository interfaces (not the concrete store)
// - Handlers get services (not the store)
func New(cfg *config.Config, store repository.Store, mailer notify.Mailer, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		store:   store,
		hub:     notify.NewHub(notify.DefaultBuffer, logger),
		metrics: metrics.New(),
	}
	s.setupRoutes(tokens, auth.NewPasswordService(cfg.BcryptCost), mailer)
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added:
// 1. CORS: answers preflight requests before anything else runs
// 2. RequestID: assigns a unique ID to each request (for tracing)
// 3. RealIP: only behind a trusted proxy; rewrites RemoteAddr from proxy
//    headers so rate limits see the real client
// 4. Recoverer: turns panics into 500s instead of crashing
// 5. Sentry: reports panics and re-panics so Recoverer still answers
// 6. Logger, metrics and security headers
func (s *Server) setupRoutes(tokens *auth.TokenService, passwords *auth.PasswordService, mailer notify.Mailer) {
	r := s.router

	// === Global Middleware ===
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimiddleware.RequestID)
	if s.config.BehindProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	r.Use(middleware.Logger(s.logger))
	r.Use(s.metrics.Middleware)
	r.Use(middleware.SecureHeaders)

	// === Services ===
	// The store satisfies every repository interface; each service sees
	// only the slice it needs.
	notifier := service.NewNotificationService(s.store, s.store, s.hub, mailer, s.logger)
	authService := service.NewAuthService(s.store, tokens, passwords, mailer, service.AuthConfig{
		RequireEmailVerification: s.config.RequireEmailVerification,
		FrontendURL:              s.config.FrontendURL,
	}, s.logger)
	donationService := service.NewDonationService(s.store, notifier, s.metrics, s.logger)
	pickupService := service.NewPickupService(s.store, notifier, s.metrics, s.logger)
	collectionService := service.NewCollectionService(s.store, s.metrics, s.logger)
	userService := service.NewUserService(s.store, s.store, s.logger)
	analyticsService := service.NewAnalyticsService(s.store, s.logger)
	impactService := service.NewImpactService(s.store)

	// === Handlers ===
	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}
	authHandler := handler.NewAuthHandler(authService, github, s.config.IsProduction(), s.config.FrontendURL, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	donationHandler := handler.NewDonationHandler(donationService, s.logger)
	pickupHandler := handler.NewPickupHandler(pickupService, s.logger)
	collectionHandler := handler.NewCollectionHandler(collectionService, s.logger)
	notificationHandler := handler.NewNotificationHandler(notifier, s.hub, handler.DefaultHeartbeat, s.logger)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, s.logger)
	impactHandler := handler.NewImpactHandler(impactService)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	protect := auth.Protect(tokens, s.store, s.logger)
	adminOnly := auth.Authorize(model.RoleAdmin)
	ngoOnly := auth.Authorize(model.RoleNGO)

	loginLimiter := middleware.NewRateLimiter(loginLimit, loginWindow,
		"Too many login attempts, please try again after 15 minutes")
	forgotLimiter := middleware.NewRateLimiter(forgotPasswordLimit, forgotPasswordWindow,
		"Too many password reset requests, please try again after an hour")

	// === Public Routes ===
	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Health)
	if s.config.MetricsEnabled {
		r.Handle("/metrics", s.metrics.Handler())
	}

	// === Users and Authentication ===
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Get("/verify-email", authHandler.VerifyEmail)
		r.Get("/verify-email/{token}", authHandler.VerifyEmail)
		r.With(loginLimiter.Middleware).Post("/login", authHandler.Login)
		r.With(forgotLimiter.Middleware).Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password/{token}", authHandler.ResetPassword)

		// Only registered when GitHub credentials are configured.
		if github != nil {
			r.Get("/auth/github/login", authHandler.GitHubLogin)
			r.Get("/auth/github/callback", authHandler.GitHubCallback)
		}

		r.Group(func(r chi.Router) {
			r.Use(protect)

			r.Post("/refresh-token", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
			r.Post("/2fa/setup", authHandler.SetupTwoFactor)
			r.Post("/2fa/verify", authHandler.VerifyTwoFactor)
			r.Post("/2fa/disable", authHandler.DisableTwoFactor)

			r.Get("/profile", userHandler.Profile)
			r.Put("/profile", userHandler.UpdateProfile)
			r.Delete("/profile", userHandler.DeleteProfile)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/users", userHandler.List)
				r.Post("/users", userHandler.BulkUpdate)
				r.Delete("/users", userHandler.BulkDelete)
				r.Get("/users/{id}", userHandler.Get)
				r.Put("/users/{id}", userHandler.ChangeRole)
				r.Delete("/users/{id}", userHandler.Delete)
			})
		})
	})

	// === Donations ===
	r.Route("/api/donations", func(r chi.Router) {
		r.Get("/public", donationHandler.Public)

		r.Group(func(r chi.Router) {
			r.Use(protect)
			r.With(auth.Authorize(model.RoleDonor, model.RoleAdmin)).Post("/", donationHandler.Create)
			r.Get("/my-donations", donationHandler.MyDonations)
			r.With(adminOnly).Get("/", donationHandler.List)
			r.With(adminOnly).Get("/admin", donationHandler.List)
			r.With(ngoOnly).Put("/{id}", donationHandler.Decide)
		})
	})

	// === Pickups ===
	r.Route("/api/pickups", func(r chi.Router) {
		r.Use(protect)
		r.Get("/", pickupHandler.List)
		r.With(auth.Authorize(model.RoleDonor)).Post("/", pickupHandler.Create)
		r.With(auth.Authorize(model.RoleNGO, model.RoleAdmin)).Put("/{id}", pickupHandler.Complete)
	})

	// === NGO Workspace ===
	r.Route("/api/ngos", func(r chi.Router) {
		r.Use(protect)

		// Donors browse NGOs to request a pickup directly.
		r.Get("/", userHandler.ListRole(model.RoleNGO))
		r.With(adminOnly).Put("/{id}/verify", userHandler.VerifyNGO)

		r.Group(func(r chi.Router) {
			r.Use(ngoOnly)
			r.Get("/pickups", pickupHandler.Scheduled)
			r.Put("/pickups/{id}", pickupHandler.Complete)
			r.Put("/pickups/{id}/assign", pickupHandler.Assign)
			r.Get("/donations", pickupHandler.History)
			r.Put("/donations/{id}", donationHandler.Decide)
			r.Get("/pending-donations", donationHandler.Pending)
			r.Get("/notifications", notificationHandler.List)
			r.Get("/export", pickupHandler.Export)
			r.Post("/donated", collectionHandler.MarkDonated)
			r.Get("/collection", collectionHandler.List)
			r.Put("/collection/{id}/distribute", collectionHandler.Distribute)
			r.Get("/analytics", analyticsHandler.NGOAnalytics)
		})
	})

	r.With(protect, auth.Authorize(model.RoleNGO, model.RoleAdmin)).Get("/api/collections", collectionHandler.List)

	// === Analytics and Administration ===
	r.Route("/api/analytics", func(r chi.Router) {
		r.Use(protect, adminOnly)
		r.Get("/", analyticsHandler.Dashboard)
		r.Get("/audit-logs", analyticsHandler.AuditLogs)
		r.Get("/monthly-report", analyticsHandler.MonthlyReport)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(protect, adminOnly)
		r.Get("/analytics", analyticsHandler.Dashboard)
		r.Get("/stats", analyticsHandler.AdminStats)
		r.Get("/donation-analytics", analyticsHandler.DonationsPerDay)
		r.Get("/donors", userHandler.ListRole(model.RoleDonor))
		r.Get("/ngos", userHandler.ListRole(model.RoleNGO))
		r.Put("/ngos/{id}/verify", userHandler.VerifyNGO)
	})

	// === Notifications ===
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(protect)
		r.Get("/", notificationHandler.List)
		r.Post("/", notificationHandler.Create)
		r.Get("/stream", notificationHandler.Stream)
		r.Get("/unread-count", notificationHandler.UnreadCount)
		r.Put("/read-all", notificationHandler.MarkAllRead)
		r.Put("/{id}/read", notificationHandler.MarkRead)
		r.Delete("/{id}", notificationHandler.Delete)
	})

	// === Impact ===
	r.With(protect).Get("/api/impact/user", impactHandler.UserImpact)
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Cancel the base context so open event streams return
// 3. Wait for in-flight requests to finish (30s timeout)
// 4. Close the store
func (s *Server) Start() error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("store", s.config.StoreDriver),
			slog.Bool("github_login", s.config.GitHubEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
