package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/nebulastream/internal/metrics"
	"github.com/hitoshi/nebulastream/internal/middleware"
)

const (
	// OAuthCallbackPath はバックエンドのGoogleログインが戻ってくるパス。
	OAuthCallbackPath = "/auth/callback"
	// GoogleLoginPath はGoogleログインを開始するパス。
	GoogleLoginPath = "/auth/google"
)

// RouterDeps はルーター構築に必要な依存関係をまとめた構造体。
type RouterDeps struct {
	SessionHandler *SessionHandler
	ChannelHandler *ChannelHandler
	Session        middleware.SessionReader
	RateLimiter    *middleware.RateLimiter
	CSRFConfig     middleware.CSRFConfig
	CORSOrigin     string
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
}

// NewRouter はホストサーバーのchiルーターを構築する。
// ミドルウェアの適用順序:
//  1. リクエストID付与
//  2. パニックリカバリー
//  3. アクセスログ
//  4. セキュリティヘッダー
//  5. CORS
//  6. セッション状態の注入
//  7. レート制限
//  8. CSRF検証（OAuthコールバックを除く）
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSOrigin))
	if deps.Session != nil {
		r.Use(middleware.NewSessionMiddleware(deps.Session))
	}
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.GeneralMiddleware())
	}

	csrfConfig := deps.CSRFConfig
	csrfConfig.ExemptPaths = append(append([]string(nil), csrfConfig.ExemptPaths...), OAuthCallbackPath)
	r.Use(middleware.NewCSRFMiddleware(csrfConfig, logger))

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.SetupMetricsRoute(deps.Gatherer))
	}

	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig))

	if h := deps.SessionHandler; h != nil {
		r.Get(OAuthCallbackPath, h.OAuthCallback)
		if h.config.GoogleLoginURL != "" {
			r.Get(GoogleLoginPath, h.GoogleLogin)
		}

		r.Route("/api/session", func(r chi.Router) {
			r.Get("/", h.Get)
			r.With(loginLimit(deps.RateLimiter)).Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Post("/check", h.Check)
			r.With(middleware.RequireAuthenticated).Patch("/user", h.UpdateUser)
		})
	}

	if h := deps.ChannelHandler; h != nil {
		r.Route("/api/channels", func(r chi.Router) {
			r.Get("/", h.List)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuthenticated)
				r.Put("/active", h.SetActive)
				r.Post("/refresh", h.Refresh)
			})
		})
	}

	return r
}

// loginLimit はログイン用のレート制限ミドルウェアを返す。未設定なら素通しする。
func loginLimit(rl *middleware.RateLimiter) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.LoginMiddleware()
}
