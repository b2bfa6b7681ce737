// Package server wires all dependencies together and runs the HTTP server.
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

	"github.com/NathanTDL/tldraw-ai/internal/ai"
	"github.com/NathanTDL/tldraw-ai/internal/auth"
	"github.com/NathanTDL/tldraw-ai/internal/canvas"
	"github.com/NathanTDL/tldraw-ai/internal/config"
	"github.com/NathanTDL/tldraw-ai/internal/editor"
	"github.com/NathanTDL/tldraw-ai/internal/handler"
	"github.com/NathanTDL/tldraw-ai/internal/localstate"
	"github.com/NathanTDL/tldraw-ai/internal/middleware"
	"github.com/NathanTDL/tldraw-ai/internal/repository/sqlite"
	"github.com/NathanTDL/tldraw-ai/internal/service"
)

// Server is the top-level application: database, document session, AI
// clients, and the HTTP router that exposes them.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *sqlite.DB
	session *canvas.Session
	router  *chi.Mux
}

// New builds the full dependency graph. The returned server owns the
// database handle and closes it on shutdown.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("server: opening database: %w", err)
	}

	current := auth.NewCurrentUser()
	last := localstate.New(cfg.LastCanvasPath(), logger)

	session := canvas.NewSession(db, current, last, logger)
	session.RegisterEditor(context.Background(), editor.NewMemory())

	var text ai.TextGenerator
	if cfg.GeminiAPIKey != "" {
		text = ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, "", logger)
	} else {
		logger.Warn("GEMINI_API_KEY not set, chat replies will use the fallback message")
	}

	var images ai.ImageGenerator
	if cfg.TogetherAPIKey != "" {
		images = ai.NewTogetherClient(cfg.TogetherAPIKey, cfg.ImageModel, "", logger)
	} else {
		logger.Warn("TOGETHER_API_KEY not set, image generation is disabled")
	}

	dispatcher := canvas.NewDispatcher(session, images, logger)

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		session: session,
		router:  chi.NewRouter(),
	}

	canvasService := service.NewCanvasService(db, logger)
	canvasHandler := handler.NewCanvasHandler(canvasService, session, logger)
	chatHandler := handler.NewChatHandler(text, session, dispatcher, logger)
	imageHandler := handler.NewImageHandler(images, logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(logger))
	s.router.Use(chimiddleware.Recoverer)

	var tokens *auth.TokenService
	if cfg.AuthEnabled() {
		tokens, err = auth.NewTokenService(cfg.JWTSecret)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("server: creating token service: %w", err)
		}
	} else {
		logger.Warn("JWT_SECRET not set, auth and canvas library routes are disabled")
	}

	// The document session is device-local: opening, creating, and saving
	// canvases works before login, so these routes stay open. A valid
	// cookie still attaches the user identity when auth is configured.
	s.router.Group(func(r chi.Router) {
		if tokens != nil {
			r.Use(auth.OptionalAuth(tokens))
		}

		r.Post("/api/canvases", canvasHandler.HandleNew)
		r.Post("/api/canvases/{id}/open", canvasHandler.HandleOpen)
		r.Post("/api/session/save", canvasHandler.HandleSave)
		r.Get("/api/session", canvasHandler.HandleSession)

		r.Post("/api/chat", chatHandler.HandleChat)
		r.Post("/api/generate-image", imageHandler.HandleGenerate)
	})

	if tokens != nil {
		s.setupAuthRoutes(tokens, current, canvasHandler)
	}

	return s, nil
}

// setupAuthRoutes registers the login flows and the per-user canvas library.
// Only called when a JWT secret is configured.
func (s *Server) setupAuthRoutes(
	tokens *auth.TokenService,
	current *auth.CurrentUser,
	canvasHandler *handler.CanvasHandler,
) {
	var github *auth.GitHubProvider
	if s.cfg.GitHubClientID != "" && s.cfg.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(s.cfg.GitHubClientID, s.cfg.GitHubClientSecret, s.cfg.GitHubCallbackURL)
	} else {
		s.logger.Warn("GitHub OAuth not configured, only email/password login is available")
	}

	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)
	authHandler := handler.NewAuthHandler(github, authService, current, s.logger)

	s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	s.router.Post("/auth/register", authHandler.HandleRegister)
	s.router.Post("/auth/login", authHandler.HandleLogin)
	s.router.Post("/auth/logout", authHandler.HandleLogout)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/api/me", authHandler.HandleMe)
		r.Get("/api/canvases", canvasHandler.HandleList)
		r.Get("/api/canvases/{id}", canvasHandler.HandleGet)
		r.Put("/api/canvases/{id}", canvasHandler.HandleRename)
		r.Put("/api/canvases/{id}/pin", canvasHandler.HandlePin)
		r.Delete("/api/canvases/{id}", canvasHandler.HandleDelete)
	})
}

// Start restores the last session, runs the HTTP server, and blocks until
// SIGINT/SIGTERM, then shuts down gracefully: pending canvas edits are
// flushed before the database closes.
func (s *Server) Start() error {
	s.session.Initialize(context.Background())

	httpServer := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", s.cfg.Addr()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		s.db.Close()
		return fmt.Errorf("server: listening on %s: %w", s.cfg.Addr(), err)
	case sig := <-quit:
		s.logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.session.Save(ctx, false); err != nil {
		s.logger.Error("final save failed", slog.String("error", err.Error()))
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		s.db.Close()
		return fmt.Errorf("server: graceful shutdown: %w", err)
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("server: closing database: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
