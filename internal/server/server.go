// Package server wires the dependency graph and owns the HTTP lifecycle:
// which handlers hang off which routes, which middleware guards them, and
// how the process starts and drains on shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/dayeon-k/examboard/internal/auth"
	"github.com/dayeon-k/examboard/internal/cache"
	"github.com/dayeon-k/examboard/internal/handler"
	"github.com/dayeon-k/examboard/internal/middleware"
	sqliteRepo "github.com/dayeon-k/examboard/internal/repository/sqlite"
	"github.com/dayeon-k/examboard/internal/service"
)

// Config holds server configuration, read from the environment by main.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string
	RedisAddr string
}

// Server owns the router and the resources behind it. The database
// connection and the redis client are closed during shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	redis  *redis.Client
}

// New builds the full dependency graph: storage → services → handlers →
// routes. Construction fails fast on a bad database path or JWT secret;
// an unreachable redis only logs a warning since the cache is degradable.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	{
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// The selection flow degrades without the cache; only the
			// popularity ranking endpoints actually need it.
			logger.Warn("redis unreachable — popularity ranking degraded",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		redisClient.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	ranker := cache.NewPopularityIndex(s.redis)

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	postService := service.NewPostService(s.db, s.logger)
	commentService := service.NewCommentService(s.db, s.db, s.logger)
	problemService := service.NewProblemService(s.db, ranker, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	postHandler := handler.NewPostHandler(postService, s.logger)
	commentHandler := handler.NewCommentHandler(commentService, s.logger)
	problemHandler := handler.NewProblemHandler(problemService, s.logger)

	requireAuth := auth.RequireAuth(tokens, s.db)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authHandler.HandleMe)
			r.Put("/profile", authHandler.HandleUpdateProfile)
			r.Put("/password", authHandler.HandleChangePassword)
		})
	})

	s.router.Route("/blog", func(r chi.Router) {
		r.Get("/", postHandler.HandleList)
		r.Get("/tags/{tag}", postHandler.HandleListByTag)
		r.Get("/{postID}", postHandler.HandleGet)
		r.Get("/{postID}/comments", commentHandler.HandleList)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Put("/{postID}", postHandler.HandleUpdate)
			r.Delete("/{postID}", postHandler.HandleDelete)
			r.Post("/{postID}/comments", commentHandler.HandleCreate)
			r.Post("/{postID}/comments/{commentID}/replies", commentHandler.HandleCreateReply)
			r.Put("/{postID}/comments/{commentID}", commentHandler.HandleUpdate)
			r.Delete("/{postID}/comments/{commentID}", commentHandler.HandleDelete)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, auth.RequireAdmin)
			r.Post("/", postHandler.HandleCreate)
		})
	})

	s.router.Route("/problems", func(r chi.Router) {
		r.Get("/", problemHandler.HandleList)
		r.Get("/popular", problemHandler.HandlePopular)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/my", problemHandler.HandleSelect)
			r.Get("/my", problemHandler.HandleListMine)
			r.Delete("/my/{selectionID}", problemHandler.HandleDeselect)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, auth.RequireAdmin)
			r.Post("/admin", problemHandler.HandleRegister)
			r.Post("/admin/popular/rebuild", problemHandler.HandleRebuildPopularity)
		})
	})

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests (30s budget) before closing the database and redis client.
func (s *Server) Start() error {
	defer s.db.Close()
	defer s.redis.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("redis", s.config.RedisAddr),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
