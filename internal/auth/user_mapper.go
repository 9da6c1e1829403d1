package auth

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/hitoshi/nebulastream/internal/model"
)

// RawUser はバックエンドが返すユーザーの生データ。
// /auth/me、/auth/login、OAuthコールバックで共通の形。
type RawUser struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Picture         string `json:"picture"`
	Avatar          string `json:"avatar"`
	Handle          string `json:"handle"`
	GoogleID        string `json:"googleId"`
	IsEmailVerified bool   `json:"isEmailVerified"`
	Role            string `json:"role"`
}

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	nonHandlePattern  = regexp.MustCompile(`[^a-z0-9]`)
)

const avatarFallbackURL = "https://ui-avatars.com/api/?background=random&name="

// MapUser はバックエンドの生データをローカルのUserに変換する。
//   - roleが空の場合は "user"
//   - handleが空の場合は名前から生成
//   - picture/avatarが空の場合はui-avatarsのURL
//   - subscribersは "0"
func MapUser(raw RawUser) *model.User {
	user := &model.User{
		ID:              raw.ID,
		Name:            raw.Name,
		Email:           raw.Email,
		Handle:          raw.Handle,
		GoogleID:        raw.GoogleID,
		IsEmailVerified: raw.IsEmailVerified,
		Role:            model.Role(raw.Role),
		Subscribers:     "0",
	}

	if user.Role == "" {
		user.Role = model.RoleUser
	}
	if user.Handle == "" {
		user.Handle = SynthesizeHandle(raw.Name)
	}

	switch {
	case raw.Picture != "":
		user.Avatar = raw.Picture
	case raw.Avatar != "":
		user.Avatar = raw.Avatar
	default:
		user.Avatar = DefaultAvatarURL(raw.Name)
	}

	return user
}

// SynthesizeHandle は表示名から "@" 付きのハンドルを生成する。
// 小文字化し、空白と英数字以外を取り除く。
func SynthesizeHandle(name string) string {
	h := strings.ToLower(name)
	h = whitespacePattern.ReplaceAllString(h, "")
	h = nonHandlePattern.ReplaceAllString(h, "")
	return "@" + h
}

// DefaultAvatarURL は名前からプレースホルダーアバターのURLを生成する。
func DefaultAvatarURL(name string) string {
	return avatarFallbackURL + encodeURIComponent(name)
}

// encodeURIComponent はスペースを %20 としてエンコードする。
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
