// Package api はNebulaStreamバックエンドのREST APIクライアントを提供する。
//
// サービスごとにエンドポイントをまとめ、Bearerトークンの付与・レート制限・
// エラーレスポンスの変換をClientが一元的に扱う。
//
//	client := api.NewClient("http://localhost:4000", api.WithTokens(tokenStore))
//	channels, err := client.Channels.MyChannels(ctx)
package api

import (
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/hitoshi/nebulastream/internal/metrics"
)

const (
	// DefaultTimeout は通常のAPI呼び出しのタイムアウト。
	DefaultTimeout = 30 * time.Second
	// DefaultUploadTimeout は動画アップロードのタイムアウト。
	DefaultUploadTimeout = 30 * time.Minute
	// DefaultRateLimit はクライアント側のレート制限（リクエスト/秒）。
	DefaultRateLimit = 10
	// DefaultRateBurst はレート制限のバースト数。
	DefaultRateBurst = 20
)

// Client はNebulaStreamバックエンドのAPIクライアント。
type Client struct {
	baseURL      string
	httpClient   *http.Client
	uploadClient *http.Client
	tokens       TokenReader
	limiter      *rate.Limiter
	validate     *validator.Validate
	metrics      metrics.MetricsCollector
	logger       *slog.Logger

	// Services
	Auth          *AuthService
	Channels      *ChannelsService
	Videos        *VideosService
	Comments      *CommentsService
	Likes         *LikesService
	Subscriptions *SubscriptionsService
	WatchLater    *WatchLaterService
	Playlists     *PlaylistsService
	Downloads     *DownloadsService
	History       *HistoryService
	Admin         *AdminService
	Settings      *SettingsService
}

// Option はClientの設定を行う。
type Option func(*Client)

// WithHTTPClient は通常のAPI呼び出しに使うHTTPクライアントを差し替える。
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout は通常のAPI呼び出しのタイムアウトを設定する。
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithUploadTimeout はアップロードのタイムアウトを設定する。
func WithUploadTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.uploadClient.Timeout = timeout
	}
}

// WithTokens はBearerトークンの読み出し元を設定する。
func WithTokens(tokens TokenReader) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// WithRateLimit はクライアント側のレート制限を設定する。rpsが0以下の場合は無制限。
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics はメトリクスの記録先を設定する。
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger はロガーを設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient はAPIクライアントを生成する。baseURLの末尾の "/" は取り除かれる。
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		uploadClient: &http.Client{Timeout: DefaultUploadTimeout},
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateBurst),
		validate:     newValidator(),
		metrics:      metrics.Nop{},
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	// バックエンドのセッションCookieを保持する
	if c.httpClient.Jar == nil {
		if jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List}); err == nil {
			c.httpClient.Jar = jar
			c.uploadClient.Jar = jar
		}
	}
	if c.uploadClient.Transport == nil {
		c.uploadClient.Transport = c.httpClient.Transport
	}

	// Initialize services
	c.Auth = &AuthService{client: c}
	c.Channels = &ChannelsService{client: c}
	c.Videos = &VideosService{client: c}
	c.Comments = &CommentsService{client: c}
	c.Likes = &LikesService{client: c}
	c.Subscriptions = &SubscriptionsService{client: c}
	c.WatchLater = &WatchLaterService{client: c}
	c.Playlists = &PlaylistsService{client: c}
	c.Downloads = &DownloadsService{client: c}
	c.History = &HistoryService{client: c}
	c.Admin = &AdminService{client: c}
	c.Settings = &SettingsService{client: c}

	return c
}

// BaseURL は現在のベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// newValidator はJSONタグ名でエラーを報告するvalidatorを生成する。
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}
