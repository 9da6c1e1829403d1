// Package middleware はホストサーバーのHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/nebulastream/internal/model"
	"github.com/hitoshi/nebulastream/internal/session"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// sessionContextKey はリクエストコンテキストにセッション状態を格納するためのキー。
	sessionContextKey = contextKey("session")
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
)

// SessionReader はセッション状態の読み取りに必要なインターフェース。
// session.Managerの部分集合として定義する。
type SessionReader interface {
	State() session.State
}

// NewSessionMiddleware はリクエスト時点のセッション状態をコンテキストに注入する。
// 認証済みの場合はユーザーIDも注入する。未認証でもリクエストは拒否しない。
func NewSessionMiddleware(src SessionReader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := src.State()
			ctx := context.WithValue(r.Context(), sessionContextKey, st)
			if st.IsAuthenticated {
				ctx = context.WithValue(ctx, userIDContextKey, st.UserID())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthenticated は認証済みセッションを必須とするミドルウェア。
// 未認証リクエストには401とLOGIN_REQUIREDを返す。NewSessionMiddlewareの後に配置する。
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := UserIDFromContext(r.Context()); err != nil {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewLoginRequiredError())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromContext はリクエストコンテキストからセッション状態を取得する。
func SessionFromContext(ctx context.Context) (session.State, bool) {
	st, ok := ctx.Value(sessionContextKey).(session.State)
	return st, ok
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証済みセッションでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
