// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: every dependency is built here and handed
// down one layer at a time.
//
//	config → sqlite.DB ──────────────┐
//	config → auth.TokenService ──────┤
//	                                 ▼
//	             services (identity, articles, likes, comments, profiles, categories)
//	                                 ▼
//	                    handlers → chi routes
//
// Handlers never touch the database; services never touch HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/config"
	"github.com/sakif/inkwell/internal/handler"
	"github.com/sakif/inkwell/internal/markdown"
	"github.com/sakif/inkwell/internal/middleware"
	sqliteRepo "github.com/sakif/inkwell/internal/repository/sqlite"
	"github.com/sakif/inkwell/internal/service"
)

const (
	seedTimeout     = 10 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Server owns the router and the database connection. The connection is
// closed when Start returns or Close is called.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database, seeds configured categories and builds the
// router.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.AuthSecret, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	categories := service.NewCategoryService(db, logger)
	if names := cfg.Categories(); len(names) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
		defer cancel()
		if err := categories.Seed(ctx, names); err != nil {
			db.Close()
			return nil, fmt.Errorf("seeding categories: %w", err)
		}
	}

	s.setupRoutes(tokens, categories)
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                        → liveness + DB ping
//	POST   /api/auth/register              → create account
//	POST   /api/auth/login                 → start session (cookie)
//	POST   /api/auth/logout                → clear session cookie
//	GET    /api/categories                 → active categories
//
//	optional session:
//	GET    /api/articles                   → published articles, paged
//	GET    /api/articles/{id}              → one visible article
//	GET    /api/articles/{id}/comments     → comments of a visible article
//	GET    /api/articles/{id}/like         → like status
//	GET    /api/users/{username}           → public profile
//
//	session required:
//	POST   /api/articles                   → create
//	PATCH  /api/articles/{id}              → edit / publish / unpublish
//	DELETE /api/articles/{id}              → soft delete
//	POST   /api/articles/{id}/comments     → comment
//	POST   /api/articles/{id}/like         → toggle like
//	GET    /api/profile                    → current user
//	PATCH  /api/profile                    → edit profile (reissues session)
//	PATCH  /api/profile/password           → change password (reissues session)
//
// MIDDLEWARE ORDER:
// RequestID first so the access log can print it, Recoverer inside Logger
// so recovered panics are logged as 500s, CORS last so preflight requests
// are answered before any route runs.
func (s *Server) setupRoutes(tokens *auth.TokenService, categories *service.CategoryService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// === Services ===
	// s.db implements every repository interface.
	identity := service.NewIdentityService(s.db, tokens, auth.NewPasswordService(s.config.BcryptCost), s.logger)
	articles := service.NewArticleService(s.db, s.db, markdown.New(), s.logger)
	comments := service.NewCommentService(s.db, s.db, s.logger)
	likes := service.NewLikeService(s.db, s.db, s.logger)
	profiles := service.NewProfileService(s.db, s.db, s.logger)

	// === Handlers ===
	session := handler.Session{TTL: tokens.TTL(), Secure: s.config.CookieSecure}
	authHandler := handler.NewAuthHandler(identity, session, s.logger)
	profileHandler := handler.NewProfileHandler(identity, session, s.logger)
	articleHandler := handler.NewArticleHandler(articles, s.logger)
	commentHandler := handler.NewCommentHandler(comments, s.logger)
	likeHandler := handler.NewLikeHandler(likes, s.logger)
	userHandler := handler.NewUserHandler(profiles, s.logger)
	categoryHandler := handler.NewCategoryHandler(categories, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Get("/categories", categoryHandler.HandleList)

		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))
			r.Get("/articles", articleHandler.HandleList)
			r.Get("/articles/{id}", articleHandler.HandleGet)
			r.Get("/articles/{id}/comments", commentHandler.HandleList)
			r.Get("/articles/{id}/like", likeHandler.HandleStatus)
			r.Get("/users/{username}", userHandler.HandleGet)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/articles", articleHandler.HandleCreate)
			r.Patch("/articles/{id}", articleHandler.HandleUpdate)
			r.Delete("/articles/{id}", articleHandler.HandleDelete)
			r.Post("/articles/{id}/comments", commentHandler.HandleCreate)
			r.Post("/articles/{id}/like", likeHandler.HandleToggle)
			r.Get("/profile", profileHandler.HandleGet)
			r.Patch("/profile", profileHandler.HandleUpdate)
			r.Patch("/profile/password", profileHandler.HandleChangePassword)
		})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database connection.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
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

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
