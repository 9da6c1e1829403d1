package auth

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/hitoshi/nebulastream/internal/model"
)

const (
	defaultGoogleAuthPath = "/auth/google"
)

// GoogleOAuthConfig はバックエンド経由のGoogle OAuthリダイレクトフローの設定。
type GoogleOAuthConfig struct {
	// BackendURL はバックエンドのベースURL。
	BackendURL string

	// テスト用にオーバーライド可能なパス
	AuthPath string
}

// GoogleOAuthProvider はバックエンドが仲介するGoogle OAuthフローを扱う。
// クライアントはバックエンドの /auth/google に遷移し、バックエンドは
// token と user（URLエンコードされたJSON）をクエリに付けてクライアントへリダイレクトする。
type GoogleOAuthProvider struct {
	config GoogleOAuthConfig
}

// NewGoogleOAuthProvider はGoogleOAuthProviderを生成する。
func NewGoogleOAuthProvider(config GoogleOAuthConfig) *GoogleOAuthProvider {
	if config.AuthPath == "" {
		config.AuthPath = defaultGoogleAuthPath
	}
	config.BackendURL = strings.TrimRight(config.BackendURL, "/")
	return &GoogleOAuthProvider{config: config}
}

// GetLoginURL はブラウザを遷移させるバックエンドのGoogleログインURLを返す。
func (p *GoogleOAuthProvider) GetLoginURL() string {
	return p.config.BackendURL + p.config.AuthPath
}

// ParseCallback はバックエンドからのリダイレクトURLから認証情報を取り出す。
// クエリはハッシュルーティングのフラグメント（#/auth/callback?token=...）の後ろにあってもよい。
// userはURLエンコードされたJSONで、二重にエンコードされていても受け付ける。
// バックエンドがmessageで失敗を通知した場合は、その内容を持つOAUTH_FAILEDエラーを返す。
func ParseCallback(rawURL string) (*model.Credential, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, model.NewMalformedAuthDataError()
	}

	// 1. 通常のクエリ、なければフラグメント内のクエリを参照する
	params := u.Query()
	if params.Get("token") == "" && params.Get("message") == "" && u.Fragment != "" {
		if i := strings.Index(u.Fragment, "?"); i >= 0 {
			fragParams, err := url.ParseQuery(u.Fragment[i+1:])
			if err != nil {
				return nil, model.NewMalformedAuthDataError()
			}
			params = fragParams
		}
	}

	if msg := params.Get("message"); msg != "" {
		return nil, model.NewOAuthFailedError(unescapeMessage(msg))
	}
	return ParseCallbackParams(params.Get("token"), params.Get("user"))
}

// unescapeMessage は二重にエンコードされたmessageをもう一段デコードする。
func unescapeMessage(msg string) string {
	if decoded, err := url.QueryUnescape(msg); err == nil {
		return decoded
	}
	return msg
}

// ParseCallbackParams はtokenとuser文字列から認証情報を組み立てる。
func ParseCallbackParams(token, userString string) (*model.Credential, error) {
	if token == "" || userString == "" {
		return nil, model.NewMalformedAuthDataError()
	}

	raw, err := decodeCallbackUser(userString)
	if err != nil || raw.ID == "" {
		return nil, model.NewMalformedAuthDataError()
	}

	return &model.Credential{User: MapUser(*raw), Token: token}, nil
}

// decodeCallbackUser はJSONとしてそのまま、またはもう一段URLデコードしてから解析する。
func decodeCallbackUser(s string) (*RawUser, error) {
	var raw RawUser
	if err := json.Unmarshal([]byte(s), &raw); err == nil {
		return &raw, nil
	}

	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return nil, fmt.Errorf("failed to unescape user: %w", err)
	}
	if err := json.Unmarshal([]byte(decoded), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse user: %w", err)
	}
	return &raw, nil
}
