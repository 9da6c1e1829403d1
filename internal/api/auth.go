package api

import (
	"context"
	"net/http"

	"github.com/hitoshi/nebulastream/internal/auth"
	"github.com/hitoshi/nebulastream/internal/model"
	"github.com/hitoshi/nebulastream/internal/session"
)

// Google疑似ログインのデフォルト値。
const (
	DefaultMockEmail = "demo@example.com"
	DefaultMockName  = "Demo User"
)

// AuthService は認証関連のエンドポイントを扱う。
type AuthService struct {
	client *Client
}

// LoginRequest はメールアドレス・パスワードでのログインリクエスト。
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GoogleMockRequest は開発用のGoogle疑似ログインリクエスト。
type GoogleMockRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Name    string `json:"name" validate:"required"`
	Picture string `json:"picture,omitempty"`
}

// ResetPasswordRequest はパスワード再設定リクエスト。
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// loginResponse はログイン系エンドポイントのレスポンス。
type loginResponse struct {
	User        *auth.RawUser `json:"user"`
	AccessToken string        `json:"access_token"`
}

// toCredential はレスポンスをCredentialに変換する。
func (r *loginResponse) toCredential() (*model.Credential, error) {
	if r.User == nil || r.User.ID == "" || r.AccessToken == "" {
		return nil, model.NewMalformedAuthDataError()
	}
	return &model.Credential{User: auth.MapUser(*r.User), Token: r.AccessToken}, nil
}

// Me はログイン中のユーザーを返す。
func (s *AuthService) Me(ctx context.Context) (*model.User, error) {
	var resp struct {
		User *auth.RawUser `json:"user"`
	}
	if err := s.client.get(ctx, "/auth/me", authRequired, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, model.NewMalformedAuthDataError()
	}
	return auth.MapUser(*resp.User), nil
}

// Login はメールアドレスとパスワードでログインする。
// 認証拒否は "Invalid email or password" に変換される。
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.Credential, error) {
	req := LoginRequest{Email: email, Password: password}
	if err := s.client.validateRequest(req); err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := s.client.post(ctx, "/auth/login", authNone, req, &resp); err != nil {
		if apiErr, ok := IsAPIError(err); ok &&
			(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusBadRequest) {
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, err
	}
	return resp.toCredential()
}

// LoginWithPassword はsession.PasswordAuthenticatorを実装する。
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (*model.Credential, error) {
	return s.Login(ctx, email, password)
}

// GoogleMock は開発用のGoogle疑似ログインを行う。空の引数にはデフォルト値を使う。
func (s *AuthService) GoogleMock(ctx context.Context, email, name string) (*model.Credential, error) {
	if email == "" {
		email = DefaultMockEmail
	}
	if name == "" {
		name = DefaultMockName
	}
	req := GoogleMockRequest{Email: email, Name: name, Picture: auth.DefaultAvatarURL(name)}
	if err := s.client.validateRequest(req); err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := s.client.post(ctx, "/auth/google/mock", authNone, req, &resp); err != nil {
		return nil, err
	}
	return resp.toCredential()
}

// ResetPassword はリセットトークンを使ってパスワードを再設定する。
func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := s.client.validateRequest(req); err != nil {
		return err
	}
	return s.client.post(ctx, "/auth/reset-password", authNone, req, nil)
}

// compile-time interface check
var _ session.PasswordAuthenticator = (*AuthService)(nil)
