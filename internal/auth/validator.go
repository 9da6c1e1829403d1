package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/nebulastream/internal/model"
)

// meEndpointPath は「who am I」エンドポイントのパス。
const meEndpointPath = "/auth/me"

// ErrTokenExpired はJWTのexpがすでに過ぎているためネットワーク呼び出しを省略したことを示す。
var ErrTokenExpired = errors.New("token is expired")

// meResponse は /auth/me のレスポンス。
type meResponse struct {
	User *RawUser `json:"user"`
}

// Validator はバックエンドの /auth/me を呼び出してトークンを検証する。
type Validator struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	endpoint   string // テスト用にエンドポイントを差し替え可能
	now        func() time.Time
}

// NewValidator はValidatorを生成する。baseURLはバックエンドのベースURL。
func NewValidator(httpClient *http.Client, baseURL string, logger *slog.Logger) *Validator {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &Validator{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		endpoint:   baseURL + meEndpointPath,
		now:        time.Now,
	}
}

// Validate はトークンを検証し、有効であればユーザーを返す。
// 無効・通信失敗のいずれの場合もユーザーはnilとなり、panicやエラー伝播で呼び出し元を止めない。
// 返されるerrorは表示用の補足情報で、到達不能（transport）と拒否（auth）を区別する。
func (v *Validator) Validate(ctx context.Context, token string) (*model.User, error) {
	// 1. 空トークン・期限切れJWTはネットワークを使わずに無効とする
	if token == "" {
		return nil, model.NewAuthRejectedError(http.StatusUnauthorized)
	}
	if TokenExpired(token, v.now()) {
		v.logger.Info("token validation skipped: token already expired")
		return nil, ErrTokenExpired
	}

	// 2. /auth/me を呼び出す
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		v.logger.Error("token validation failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		v.logger.Error("token validation failed: cannot reach backend",
			slog.String("endpoint", v.endpoint),
			slog.String("error", err.Error()),
		)
		return nil, model.NewTransportError(v.baseURL)
	}
	defer resp.Body.Close()

	// 3. ステータスチェック
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		v.logger.Warn("token validation failed: rejected by backend",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewAuthRejectedError(resp.StatusCode)
	}

	// 4. レスポンスのデコード
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		v.logger.Error("token validation failed: read body", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var me meResponse
	if err := json.Unmarshal(body, &me); err != nil {
		v.logger.Error("token validation failed: malformed response", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if me.User == nil || me.User.ID == "" {
		v.logger.Warn("token validation failed: response has no user")
		return nil, model.NewAuthRejectedError(resp.StatusCode)
	}

	return MapUser(*me.User), nil
}

// IsTransportError はerrがバックエンド到達不能を表すかを返す。
func IsTransportError(err error) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeTransport
}
