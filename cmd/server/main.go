// Midori - AI website studio server
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/midori/internal/api"
	"github.com/ashureev/midori/internal/config"
	"github.com/ashureev/midori/internal/conversation"
	"github.com/ashureev/midori/internal/editor"
	"github.com/ashureev/midori/internal/identity"
	"github.com/ashureev/midori/internal/llm"
	"github.com/ashureev/midori/internal/middleware"
	"github.com/ashureev/midori/internal/preview"
	"github.com/ashureev/midori/internal/store"
	"github.com/ashureev/midori/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const (
	version        = "0.1.0"
	previewBuffer  = 8
	shutdownPeriod = 10 * time.Second
)

func main() {
	app := &cli.App{
		Name:    "midori",
		Usage:   "AI website studio: chat with Midori, generate code, preview it live",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"MIDORI_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override server.port",
			},
		},
		Before: func(*cli.Context) error {
			if err := godotenv.Load(); err != nil {
				slog.Info("No .env file found, using environment variables")
			}
			return nil
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server (default)",
				Action: serve,
			},
			{
				Name:   "config",
				Usage:  "Print the effective configuration with secrets masked",
				Action: printConfig,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if port := c.String("port"); port != "" {
		cfg.Server.Port = port
	}
	return cfg, nil
}

func printConfig(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg.Redacted())
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Server.Port, "dev", cfg.IsDevelopment(), "storage", cfg.Storage.Driver)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("storage health check: %w", err)
	}
	slog.Info("Storage connected")

	model, err := llm.NewModel(ctx, llm.Options{
		Provider: llm.Provider(cfg.LLM.Provider),
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.GenerateModel,
	})
	if err != nil {
		return fmt.Errorf("initialize model client: %w", err)
	}
	refiner := llm.NewRefiner(model, llm.CallSettings{
		Model:       cfg.LLM.RefineModel,
		Temperature: cfg.LLM.RefineTemperature,
		MaxTokens:   cfg.LLM.RefineMaxTokens,
	})
	generator := llm.NewGenerator(model, llm.CallSettings{
		Model:       cfg.LLM.GenerateModel,
		Temperature: cfg.LLM.GenerateTemperature,
		MaxTokens:   cfg.LLM.GenerateMaxTokens,
	})
	slog.Info("Model client initialized", "provider", cfg.LLM.Provider)

	conversationLogger, err := conversation.NewConversationLogger(conversation.ConversationLogConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize conversation logger: %w", err)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	// Initialize services.
	hub := preview.NewHub(previewBuffer)
	conversations := conversation.NewManager(refiner, conversationLogger)
	editors := editor.NewManager(generator, repo, hub)
	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window)

	// Initialize handlers.
	base := api.NewHandler(repo, cfg)
	systemHandler := api.NewSystemHandler(base)
	wsHandler := preview.NewWebSocketHandler(hub, editors.Current, cfg.Server.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(maxBodySize(cfg.Server.MaxRequestBodySize))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	// Public routes.
	systemHandler.RegisterHealth(r)

	// Everything else is scoped to the anonymous identity and tab session.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

		systemHandler.RegisterRoutes(r)
		api.NewAIHandler(base, refiner, generator).RegisterRoutes(r, limiter.Middleware)
		api.NewConversationHandler(base, conversations).RegisterRoutes(r, limiter.Middleware)
		api.NewEditorHandler(base, editors).RegisterRoutes(r, limiter.Middleware)
		api.NewDraftHandler(base).RegisterRoutes(r)
		api.NewProjectHandler(base).RegisterRoutes(r)
		api.NewPreviewHandler(base, editors, wsHandler).RegisterRoutes(r)
	})

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// Model calls can take most of a minute, so WriteTimeout stays generous.
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	// Start retention worker and idle tab sweepers.
	store.StartRetentionWorker(ctx, repo, cfg.Storage.Retention, func(userID string) {
		conversations.DropUser(userID)
		editors.DropUser(userID)
		hub.CloseUser(userID)
		store.ForgetOwner(userID)
	})
	slog.Info("Retention worker started", "retention", cfg.Storage.Retention)

	conversations.StartIdleSweeper(ctx, cfg.Session.IdleTTL)
	editors.StartIdleSweeper(ctx, cfg.Session.IdleTTL)
	slog.Info("Idle session sweepers started", "idle_ttl", cfg.Session.IdleTTL)

	// Start server.
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or listener failure.
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server stopped successfully")
	return nil
}

// maxBodySize caps request bodies.
func maxBodySize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.MaxBytesHandler(next, limit)
	}
}
