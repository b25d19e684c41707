package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/TrustyKrab/Englix-Server/config"
	"github.com/TrustyKrab/Englix-Server/internal/auth"
	"github.com/TrustyKrab/Englix-Server/internal/db"
	"github.com/TrustyKrab/Englix-Server/internal/handlers"
	"github.com/TrustyKrab/Englix-Server/internal/logger"
	"github.com/TrustyKrab/Englix-Server/internal/mailer"
	"github.com/TrustyKrab/Englix-Server/internal/metrics"
	"github.com/TrustyKrab/Englix-Server/internal/services"
	"github.com/TrustyKrab/Englix-Server/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	closers    []func() error
}

// New constructs a Server with the store and mailer selected by cfg.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	s := &Server{}

	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	tokens, err := auth.NewTokenIssuer(jwtSecret)
	if err != nil {
		return nil, err
	}

	userRepo, err := s.openUserRepository(ctx, cfg)
	if err != nil {
		s.close()
		return nil, err
	}

	mail, closeMail, err := mailer.New(ctx, cfg)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("init mailer failed: %w", err)
	}
	s.closers = append(s.closers, closeMail)

	hasher := auth.NewBcryptHasher(auth.DefaultHashCost)
	userService := services.NewUserService(userRepo, hasher)
	authService, err := services.NewAuthService(userRepo, hasher, tokens, mail, services.AuthOptions{
		MailFrom:     cfg.Mail.User,
		ResetURLBase: cfg.ResetURLBase,
	})
	if err != nil {
		s.close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logger.RequestLogger,
		middleware.Recoverer,
		m.Middleware,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	router.Route("/user", func(r chi.Router) {
		handlers.UserRouter(r, authService, userService, m, cfg.CookieCrossSite)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.router = router
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) openUserRepository(ctx context.Context, cfg config.Config) (services.UserRepository, error) {
	switch cfg.StoreBackend {
	case config.StoreMongo:
		client, database, err := db.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("connect mongo failed: %w", err)
		}
		s.closers = append(s.closers, func() error {
			return client.Disconnect(context.Background())
		})

		repo := store.NewMongoUserRepository(database)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure mongo indexes failed: %w", err)
		}
		return repo, nil
	case config.StorePostgres:
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres failed: %w", err)
		}
		s.closers = append(s.closers, conn.Close)
		return store.NewUserRepository(conn), nil
	case config.StoreMemory:
		log.Warn().Msg("Using in-memory user store; data is lost on restart")
		return store.NewMemoryUserRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("Starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases the store and mailer.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn().Err(err).Msg("Failed to release server resource")
		}
	}
	s.closers = nil
}
