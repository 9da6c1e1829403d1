package app

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

	"github.com/spf13/cobra"

	"github.com/hitoshi/nebulastream/internal/auth"
	"github.com/hitoshi/nebulastream/internal/config"
	"github.com/hitoshi/nebulastream/internal/database"
	"github.com/hitoshi/nebulastream/internal/handler"
	"github.com/hitoshi/nebulastream/internal/middleware"
)

func (c *cli) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local client host server",
		Long: `Starts the client host server. The session is restored from the store,
re-validated every REVALIDATE_INTERVAL, and the channel list follows the
session. Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(c.stderr)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			logStart("serve", cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

// NewHostRouter はランタイムからホストサーバーのルーターを組み立てる。
func NewHostRouter(rt *Runtime, rateLimiter *middleware.RateLimiter) http.Handler {
	logger := rt.Logger
	return handler.NewRouter(handler.RouterDeps{
		SessionHandler: handler.NewSessionHandler(rt.Session, rt.Effects, rt.Tokens, handler.SessionHandlerConfig{
			UnauthenticatedRoute: rt.Config.UnauthenticatedRoute,
			GoogleLoginURL:       auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{BackendURL: rt.Config.APIBaseURL}).GetLoginURL(),
		}, logger),
		ChannelHandler: handler.NewChannelHandler(rt.Channels, logger),
		Session:        rt.Session,
		RateLimiter:    rateLimiter,
		CSRFConfig:     middleware.CSRFConfig{CookieSecure: !rt.Config.DevMode},
		CORSOrigin:     rt.Config.CORSAllowedOrigin,
		Gatherer:       rt.Registry,
		Logger:         logger,
	})
}

// runServe はホストサーバーを起動し、ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. ランタイムの組み立て
	rt, err := NewRuntime(ctx, cfg, slog.Default(), RuntimeOptions{})
	if err != nil {
		return err
	}
	defer rt.Close()

	// 2. チャンネルコンテキストをセッションに接続し、セッションの復元と定期再検証を開始
	rt.Channels.Attach(ctx, rt.Session)
	defer rt.Channels.Close()

	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		rt.Session.Run(ctx)
	}()

	// 3. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(), slog.Default())
	defer rateLimiter.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      NewHostRouter(rt, rateLimiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 4. HTTPサーバーの起動
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("host server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	}
	slog.Info("shutting down host server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-sessionDone

	slog.Info("host server stopped gracefully")
	return nil
}

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply store schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(c.stderr)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runMigrate(cfg)
		},
	}
}

// runMigrate はSQL系ストアのマイグレーションを実行する。
// Redis・メモリストアにはスキーマがないため何もしない。
func runMigrate(cfg *config.Config) error {
	var driver, dsn string
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		// 親ディレクトリとファイルを作成しておく
		db, err := database.OpenSQLite(cfg.StorePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		db.Close()
		driver, dsn = database.DriverSQLite, cfg.StorePath
	case config.StoreDriverPostgres:
		driver, dsn = database.DriverPostgres, cfg.DatabaseURL
	default:
		slog.Info("store driver has no schema to migrate", slog.String("store_driver", cfg.StoreDriver))
		return nil
	}

	slog.Info("running store migrations",
		slog.String("driver", driver),
		slog.String("dsn", maskDatabaseURL(dsn)),
	)
	if err := database.RunMigrations(driver, dsn); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("store migrations completed successfully")
	return nil
}

func (c *cli) healthcheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe the local host server's /health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 軽量サブコマンドのため、フル初期化をスキップする
			port := os.Getenv("SERVER_PORT")
			if port == "" {
				port = "3000"
			}
			return runHealthcheck(cmd.Context(), fmt.Sprintf("http://localhost:%s/health", port))
		},
	}
}

// runHealthcheck はヘルスチェックを実行する。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
