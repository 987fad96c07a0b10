package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/contactbook/apiserver/config"
	"github.com/contactbook/apiserver/internal/db"
	"github.com/contactbook/apiserver/internal/handlers"
	"github.com/contactbook/apiserver/internal/mq"
	"github.com/contactbook/apiserver/internal/services"
	"github.com/contactbook/apiserver/internal/session"
	"github.com/contactbook/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
)

// Server wraps the HTTP server, router and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sqlx.DB
	closers    []func() error
	logger     *slog.Logger
}

// Deps are the collaborators the HTTP routes need.
type Deps struct {
	Contacts *services.ContactService
	Auth     *handlers.AuthHandler
	Location *time.Location
}

// NewRouter builds the chi router with middleware and every route.
func NewRouter(deps Deps) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/contacts", func(r chi.Router) {
		handlers.ContactRouter(r, deps.Contacts, deps.Location, deps.Auth.RequireAuth)
	})
	router.Group(func(r chi.Router) {
		handlers.AuthRouter(r, deps.Auth)
	})
	return router
}

// New connects to the database and optional collaborators and wires the routes.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	tokens, err := session.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Server{db: dbConn, logger: logger}

	var revoker session.Revoker = session.NoopRevoker{}
	if cfg.Redis.Addr != "" {
		redisRevoker, err := session.NewRedisRevoker(ctx, cfg.Redis)
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, redisRevoker.Close)
		revoker = redisRevoker
	} else {
		logger.Warn("REDIS_ADDR not set, logout will not revoke tokens")
	}

	contactOpts := []services.ContactOption{services.WithLogger(logger)}
	backend, err := mq.Open(ctx, cfg.Events)
	switch {
	case errors.Is(err, mq.ErrDisabled):
		logger.Info("contact events disabled")
	case err != nil:
		s.close()
		return nil, fmt.Errorf("open events backend: %w", err)
	default:
		events, err := mq.NewContactEvents(backend, cfg.Events.Channel)
		if err != nil {
			_ = backend.Close()
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, events.Close)
		contactOpts = append(contactOpts, services.WithEvents(events))
		logger.Info("contact events enabled",
			slog.String("backend", cfg.Events.Backend),
			slog.String("channel", events.Channel()),
		)
	}

	contactService := services.NewContactService(store.NewContactRepository(dbConn), contactOpts...)
	userService := services.NewUserService(store.NewUserRepository(dbConn))

	s.router = NewRouter(Deps{
		Contacts: contactService,
		Auth:     handlers.NewAuthHandler(userService, tokens, revoker),
		Location: loc,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server listening", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("close failed", slog.Any("error", err))
		}
	}
	s.closers = nil
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
}
