package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/nebulastream/internal/api"
	"github.com/hitoshi/nebulastream/internal/auth"
	"github.com/hitoshi/nebulastream/internal/channel"
	"github.com/hitoshi/nebulastream/internal/config"
	"github.com/hitoshi/nebulastream/internal/database"
	"github.com/hitoshi/nebulastream/internal/handler"
	"github.com/hitoshi/nebulastream/internal/metrics"
	"github.com/hitoshi/nebulastream/internal/repository"
	"github.com/hitoshi/nebulastream/internal/security"
	"github.com/hitoshi/nebulastream/internal/session"
)

// Runtime はクライアントランタイム一式（ストア・APIクライアント・セッション・チャンネル）。
type Runtime struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     repository.KeyValueStore
	Tokens    *auth.TokenStore
	Client    *api.Client
	Session   *session.Manager
	Channels  *channel.Context
	Effects   *handler.EffectRecorder
	Registry  *prometheus.Registry
	Sanitizer security.ContentSanitizerService

	closers []func() error
}

// RuntimeOptions はNewRuntimeの任意設定。
type RuntimeOptions struct {
	// Alerter はアカウント不一致の警告の表示先。nilの場合はEffectsに記録する。
	Alerter session.Alerter
}

// NewRuntime は設定からランタイムを組み立てる。
// 返されたRuntimeは使用後にCloseする必要がある。
func NewRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts RuntimeOptions) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// 1. 永続化ストア
	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 3. トークンストアと画面遷移の記録
	effects := handler.NewEffectRecorder(logger)
	tokens := auth.NewTokenStore(store, logger, auth.TokenStoreConfig{
		UnauthenticatedRoute: cfg.UnauthenticatedRoute,
		Navigator:            effects,
		Forgetter:            effects,
	})

	// 4. RESTクライアント
	client := api.NewClient(cfg.APIBaseURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithUploadTimeout(cfg.UploadTimeout),
		api.WithRateLimit(cfg.APIRateLimit, cfg.APIRateBurst),
		api.WithTokens(tokens),
		api.WithMetrics(collector),
		api.WithLogger(logger),
	)

	// 5. セッションとチャンネルコンテキスト
	var alerter session.Alerter = effects
	if opts.Alerter != nil {
		alerter = opts.Alerter
	}
	manager := session.NewManager(session.Config{
		Store:         tokens,
		Validator:     auth.NewValidator(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.APIBaseURL, logger),
		Guard:         auth.NewLockGuard(tokens, logger),
		Alerter:       alerter,
		Authenticator: client.Auth,
		Metrics:       collector,
		Logger:        logger,
		Interval:      cfg.RevalidateInterval,
	})
	channels := channel.New(channel.Config{
		Store:   store,
		Fetcher: client.Channels,
		Metrics: collector,
		Logger:  logger,
	})

	return &Runtime{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Tokens:    tokens,
		Client:    client,
		Session:   manager,
		Channels:  channels,
		Effects:   effects,
		Registry:  registry,
		Sanitizer: security.NewContentSanitizer(),
		closers:   []func() error{closeStore},
	}, nil
}

// Restore は保存済みセッションを検証し、チャンネルコンテキストを接続して初回読み込みを待つ。
// CLIのワンショットコマンドで使う。
func (rt *Runtime) Restore(ctx context.Context) session.State {
	if err := rt.Session.Init(ctx); err != nil {
		rt.Logger.Info("no usable stored session", slog.String("reason", err.Error()))
	}
	rt.Channels.Attach(ctx, rt.Session)
	rt.Channels.Wait()
	rt.closers = append([]func() error{func() error { rt.Channels.Close(); return nil }}, rt.closers...)
	return rt.Session.State()
}

// Close はランタイムが保持するリソースを解放する。
func (rt *Runtime) Close() error {
	var errs []error
	for _, c := range rt.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// OpenStore はSTORE_DRIVERに応じたキーバリューストアを開く。
// SQL系のドライバではスキーマのマイグレーションも適用する。
func OpenStore(ctx context.Context, cfg *config.Config) (repository.KeyValueStore, func() error, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		db, err := database.OpenSQLite(cfg.StorePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		if err := database.RunMigrations(database.DriverSQLite, cfg.StorePath); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate sqlite store: %w", err)
		}
		return repository.NewSQLiteKVRepo(db), db.Close, nil

	case config.StoreDriverPostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.RunMigrations(database.DriverPostgres, cfg.DatabaseURL); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return repository.NewPostgresKVRepo(db), db.Close, nil

	case config.StoreDriverRedis:
		client, err := repository.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return repository.NewRedisKVRepo(client, ""), client.Close, nil

	case config.StoreDriverMemory:
		return repository.NewMemoryKVRepo(), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %q", cfg.StoreDriver)
	}
}
