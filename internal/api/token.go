package api

import (
	"context"
	"errors"

	"golang.org/x/oauth2"

	"github.com/hitoshi/nebulastream/internal/auth"
	"github.com/hitoshi/nebulastream/internal/model"
)

// TokenReader は保存済みのBearerトークンを読み出す。
type TokenReader interface {
	Token(ctx context.Context) (string, error)
	AdminToken(ctx context.Context) (string, error)
}

// storeTokenSource は保存済みトークンをoauth2.Tokenとして提供する。
// 呼び出しのたびにストアを読み直すため、ログイン・ログアウトが即座に反映される。
type storeTokenSource struct {
	ctx  context.Context
	read func(ctx context.Context) (string, error)
}

// Token はoauth2.TokenSourceを実装する。トークンが保存されていなければログイン必須エラーを返す。
func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	if s.read == nil {
		return nil, model.NewLoginRequiredError()
	}
	raw, err := s.read(s.ctx)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, model.NewLoginRequiredError()
	}

	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if exp, ok := auth.TokenExpiry(raw); ok {
		tok.Expiry = exp
	}
	return tok, nil
}

// compile-time interface check
var _ oauth2.TokenSource = (*storeTokenSource)(nil)

func isLoginRequired(err error) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeLoginRequired
}
