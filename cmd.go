package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"prism-board/api"
	"prism-board/config"
	"prism-board/flow"
	"prism-board/gateway"
	"prism-board/storage"
	"prism-board/subscription"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "prism-board",
		Short:         "Project board service with AI task generation and risk analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newInitStorageCmd(), newGenTokenCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cfg))
		},
	}
}

func newInitStorageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-storage",
		Short: "Create the tables and queues the service writes to",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.DriverTables {
				return fmt.Errorf("init-storage needs STORE_DRIVER=%s", config.DriverTables)
			}
			logger := newLogger(cfg)
			logger.Info("storage init starting")
			ctx := cmd.Context()
			names := make([]string, 0, len(cfg.Tables))
			for _, n := range cfg.Tables {
				names = append(names, n)
			}
			if err := storage.CreateTables(ctx, cfg.StorageConn, names); err != nil {
				return fmt.Errorf("create tables: %w", err)
			}
			if err := storage.CreateQueues(ctx, cfg.StorageConn, []string{cfg.ChangeQueue}); err != nil {
				return fmt.Errorf("create queues: %w", err)
			}
			logger.Info("storage init complete")
			return nil
		},
	}
}

func newLogger(cfg config.Config) *log.Logger {
	logger := log.StandardLogger()
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	return logger
}

func serve(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	var rc *redis.Client
	if cfg.RedisConn != "" {
		opts, err := cfg.RedisOptions()
		if err != nil {
			return err
		}
		rc = redis.NewClient(opts)
		defer rc.Close()
	}

	base, err := openStore(cfg, rc)
	if err != nil {
		return err
	}

	var feed storage.Feed = storage.NewLocalFeed()
	if rc != nil {
		feed = storage.NewRedisFeed(rc, cfg.RedisPrefix, logger)
	}
	publishers := []storage.Publisher{feed}
	if cfg.ChangeQueue != "" && cfg.StoreDriver == config.DriverTables {
		q, err := storage.NewQueueLog(cfg.StorageConn, cfg.ChangeQueue)
		if err != nil {
			return fmt.Errorf("change queue: %w", err)
		}
		publishers = append(publishers, q)
	}
	store := storage.NewNotifying(base, logger, publishers...)

	subs := subscription.NewManager(base, feed, cfg.SubBuffer, logger)
	go func() {
		if err := subs.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("change feed stopped")
		}
	}()

	flows, err := newFlows(ctx, cfg, logger)
	if err != nil {
		return err
	}
	auth, err := newAuth(cfg)
	if err != nil {
		return err
	}
	var deduper api.Deduper
	if rc != nil {
		deduper = api.NewRedisDeduper(rc, cfg.RedisPrefix, cfg.DeduperTTL)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	e.Use(echoprometheus.NewMiddleware("prism_board"))
	e.GET("/metrics", echoprometheus.NewHandler())
	api.Register(e, api.Deps{
		Gateway: gateway.New(store, logger),
		Flows:   flows,
		Subs:    subs,
		Auth:    auth,
		Deduper: deduper,
		Log:     logger,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(cfg.Addr) }()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func openStore(cfg config.Config, rc *redis.Client) (storage.Store, error) {
	var base storage.Store
	switch cfg.StoreDriver {
	case config.DriverMemory:
		base = storage.NewMemory()
	default:
		tables, err := storage.NewTables(cfg.StorageConn, cfg.Tables)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		base = tables
	}
	if rc != nil {
		base = storage.NewCache(base, rc, cfg.RedisPrefix, cfg.SnapshotTTL)
	}
	return base, nil
}

func newFlows(ctx context.Context, cfg config.Config, logger *log.Logger) (*flow.Executor, error) {
	var model flow.Model
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set; AI features will fail")
		model = flow.ModelFunc(func(context.Context, flow.Request) (string, error) {
			return "", errors.New("no model configured")
		})
	} else {
		g, err := flow.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		model = g
	}
	return flow.NewExecutor(model, logger)
}

func newAuth(cfg config.Config) (*api.Auth, error) {
	if cfg.LocalAuthMode == "hs256" {
		return api.NewLocalAuth([]byte(cfg.LocalSecret)), nil
	}
	jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.Auth0Domain)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
	if err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	return api.NewAuth(jwks, cfg.Auth0Audience, "https://"+cfg.Auth0Domain+"/", cfg.JWKSCacheTTL), nil
}

func newGenTokenCmd() *cobra.Command {
	var (
		id  api.Identity
		ttl time.Duration
	)
	cmd := &cobra.Command{
		Use:   "gen-token [subject]",
		Short: "Print a token for LOCAL_AUTH_MODE=hs256",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("LOCAL_AUTH_SHARED_SECRET")
			if secret == "" {
				return errors.New("LOCAL_AUTH_SHARED_SECRET must be set")
			}
			if len(args) == 1 {
				id.Subject = args[0]
			}
			token, err := api.IssueLocalToken([]byte(secret), id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&id.Subject, "sub", "local-user", "subject claim")
	f.StringVar(&id.Email, "email", "", "email claim")
	f.StringVar(&id.Name, "name", "", "name claim")
	f.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
