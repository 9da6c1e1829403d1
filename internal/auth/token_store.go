// Package auth は認証情報の永続化、トークン検証、アカウントロックを提供する。
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hitoshi/nebulastream/internal/model"
	"github.com/hitoshi/nebulastream/internal/repository"
)

// DefaultUnauthenticatedRoute はログアウト後の遷移先。
const DefaultUnauthenticatedRoute = "/auth"

// Navigator はホストアプリケーションが提供する画面遷移の抽象。
// ログアウト時のフルページリダイレクトに相当する。
type Navigator interface {
	Navigate(route string)
}

// IdentityForgetter は外部IdPに「このアカウントを自動選択しない」よう通知する抽象。
type IdentityForgetter interface {
	DisableAutoSelect(ctx context.Context) error
}

// credentialKeys はClearCredentialで一括削除するキー。
var credentialKeys = []string{
	repository.KeyAuthToken,
	repository.KeyUserData,
	repository.KeyLockedGoogleID,
	repository.KeyLockedEmail,
	repository.KeyAuthRedirectURL,
}

// TokenStoreConfig はTokenStoreの設定。
type TokenStoreConfig struct {
	// UnauthenticatedRoute はクリア後の遷移先。空の場合は "/auth"。
	UnauthenticatedRoute string
	// Navigator はクリア後の遷移を行う。nilの場合は遷移しない。
	Navigator Navigator
	// Forgetter はクリア時にIdPへ通知する。nilの場合は通知しない。
	Forgetter IdentityForgetter
}

// TokenStore はBearerトークン・ユーザープロフィール・アカウントロックを永続化する。
type TokenStore struct {
	store     repository.KeyValueStore
	logger    *slog.Logger
	route     string
	navigator Navigator
	forgetter IdentityForgetter
}

// NewTokenStore はTokenStoreを生成する。
func NewTokenStore(store repository.KeyValueStore, logger *slog.Logger, cfg TokenStoreConfig) *TokenStore {
	if cfg.UnauthenticatedRoute == "" {
		cfg.UnauthenticatedRoute = DefaultUnauthenticatedRoute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenStore{
		store:     store,
		logger:    logger,
		route:     cfg.UnauthenticatedRoute,
		navigator: cfg.Navigator,
		forgetter: cfg.Forgetter,
	}
}

// GetStoredCredential は保存済みのトークンとユーザーを読み出す。
// どちらかが欠けている、またはユーザーJSONが壊れている場合は「セッションなし」としてfalseを返す。
func (s *TokenStore) GetStoredCredential(ctx context.Context) (*model.Credential, bool) {
	token, ok, err := s.store.Get(ctx, repository.KeyAuthToken)
	if err != nil {
		s.logger.Error("failed to get stored auth", slog.String("error", err.Error()))
		return nil, false
	}
	if !ok || token == "" {
		return nil, false
	}

	raw, ok, err := s.store.Get(ctx, repository.KeyUserData)
	if err != nil {
		s.logger.Error("failed to get stored auth", slog.String("error", err.Error()))
		return nil, false
	}
	if !ok || raw == "" {
		return nil, false
	}

	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.Warn("stored user_data is malformed, treating as no session",
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	return &model.Credential{User: &user, Token: token}, true
}

// StoreCredential はトークンとユーザーを保存し、アカウントロックを更新する。
// ユーザーにGoogleIDがあればlocked_google_idを、Emailがあればlocked_emailを上書きする。
// 値のないロックフィールドはクリアしない。
func (s *TokenStore) StoreCredential(ctx context.Context, user *model.User, token string) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	if err := s.store.Set(ctx, repository.KeyAuthToken, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	if err := s.store.Set(ctx, repository.KeyUserData, string(data)); err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}

	// アカウントロック
	if user.GoogleID != "" {
		if err := s.store.Set(ctx, repository.KeyLockedGoogleID, user.GoogleID); err != nil {
			return fmt.Errorf("failed to store google id lock: %w", err)
		}
	}
	if user.Email != "" {
		if err := s.store.Set(ctx, repository.KeyLockedEmail, user.Email); err != nil {
			return fmt.Errorf("failed to store email lock: %w", err)
		}
	}

	return nil
}

// ClearCredential はトークン・ユーザー・ロックを1回の削除操作で消去する。
// 削除後にIdPへの自動選択解除を通知し、未認証ルートへ遷移させる。
// 何度呼んでも結果は同じ。
func (s *TokenStore) ClearCredential(ctx context.Context) error {
	// 1. 永続化データの一括削除
	err := s.store.Delete(ctx, credentialKeys...)
	if err != nil {
		s.logger.Error("failed to clear stored auth", slog.String("error", err.Error()))
	}

	// 2. IdPの自動選択を解除
	if s.forgetter != nil {
		if ferr := s.forgetter.DisableAutoSelect(ctx); ferr != nil {
			s.logger.Warn("failed to disable identity auto-select", slog.String("error", ferr.Error()))
		}
	}

	// 3. 未認証ルートへ遷移
	if s.navigator != nil {
		s.navigator.Navigate(s.route)
	}

	if err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

// GetLock は現在のアカウントロックを返す。ロックがない場合はNoLockを返す。
func (s *TokenStore) GetLock(ctx context.Context) model.Lock {
	googleID, _, err := s.store.Get(ctx, repository.KeyLockedGoogleID)
	if err != nil {
		s.logger.Error("failed to read account lock", slog.String("error", err.Error()))
	}
	email, _, err := s.store.Get(ctx, repository.KeyLockedEmail)
	if err != nil {
		s.logger.Error("failed to read account lock", slog.String("error", err.Error()))
	}
	return model.LockedBy(googleID, email)
}

// Token は現在保存されているトークンを返す。保存されていない場合は空文字列を返す。
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	token, _, err := s.store.Get(ctx, repository.KeyAuthToken)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return token, nil
}

// AdminToken は管理コンソール用のトークンを返す。
func (s *TokenStore) AdminToken(ctx context.Context) (string, error) {
	token, _, err := s.store.Get(ctx, repository.KeyAdminToken)
	if err != nil {
		return "", fmt.Errorf("failed to read admin token: %w", err)
	}
	return token, nil
}

// SetRedirectURL はOAuthログイン完了後に戻る画面を保存する。
func (s *TokenStore) SetRedirectURL(ctx context.Context, path string) error {
	if err := s.store.Set(ctx, repository.KeyAuthRedirectURL, path); err != nil {
		return fmt.Errorf("failed to store redirect url: %w", err)
	}
	return nil
}

// TakeRedirectURL は保存済みのリダイレクト先を取り出して削除する。未保存の場合は "/" を返す。
func (s *TokenStore) TakeRedirectURL(ctx context.Context) string {
	path, ok, err := s.store.Get(ctx, repository.KeyAuthRedirectURL)
	if err != nil || !ok || path == "" {
		return "/"
	}
	if err := s.store.Delete(ctx, repository.KeyAuthRedirectURL); err != nil {
		s.logger.Warn("failed to delete redirect url", slog.String("error", err.Error()))
	}
	return path
}
