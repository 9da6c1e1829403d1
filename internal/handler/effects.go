// Package handler はホストサーバーのHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hitoshi/nebulastream/internal/auth"
	"github.com/hitoshi/nebulastream/internal/session"
)

// EffectRecorder はセッション層が発生させる画面遷移とIdP通知を記録する。
// ホストサーバーではブラウザ遷移を直接行えないため、保留中の遷移先を次のレスポンスで返す。
type EffectRecorder struct {
	logger *slog.Logger

	mu              sync.Mutex
	pendingRoute    string
	pendingAlert    string
	autoSelectCount int
}

// NewEffectRecorder はEffectRecorderを生成する。
func NewEffectRecorder(logger *slog.Logger) *EffectRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &EffectRecorder{logger: logger}
}

// Navigate はauth.Navigatorを実装する。遷移先を保留する。
func (e *EffectRecorder) Navigate(route string) {
	e.mu.Lock()
	e.pendingRoute = route
	e.mu.Unlock()
	e.logger.Debug("navigation recorded", slog.String("route", route))
}

// DisableAutoSelect はauth.IdentityForgetterを実装する。
// Googleアカウントの自動選択解除はブラウザ側で行うため、ここでは回数のみ記録する。
func (e *EffectRecorder) DisableAutoSelect(ctx context.Context) error {
	e.mu.Lock()
	e.autoSelectCount++
	e.mu.Unlock()
	return nil
}

// Alert はsession.Alerterを実装する。警告文を保留し、ログに残す。
func (e *EffectRecorder) Alert(message string) {
	e.mu.Lock()
	e.pendingAlert = message
	e.mu.Unlock()
	e.logger.Warn("alert raised", slog.String("message", message))
}

// TakeAlert は保留中の警告文を返して消去する。
func (e *EffectRecorder) TakeAlert() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	msg := e.pendingAlert
	e.pendingAlert = ""
	return msg
}

// TakeRedirect は保留中の遷移先を返して消去する。保留がなければ空文字列。
func (e *EffectRecorder) TakeRedirect() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	route := e.pendingRoute
	e.pendingRoute = ""
	return route
}

// AutoSelectDisabledCount は自動選択解除の通知回数を返す。
func (e *EffectRecorder) AutoSelectDisabledCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.autoSelectCount
}

// compile-time interface check
var (
	_ auth.Navigator         = (*EffectRecorder)(nil)
	_ auth.IdentityForgetter = (*EffectRecorder)(nil)
	_ session.Alerter        = (*EffectRecorder)(nil)
)
