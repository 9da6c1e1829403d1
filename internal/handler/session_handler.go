package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/nebulastream/internal/auth"
	"github.com/hitoshi/nebulastream/internal/middleware"
	"github.com/hitoshi/nebulastream/internal/model"
	"github.com/hitoshi/nebulastream/internal/session"
)

// SessionServiceInterface はセッションハンドラーが必要とするサービスインターフェース。
type SessionServiceInterface interface {
	State() session.State
	LoginWithPassword(ctx context.Context, email, password string) (*model.User, error)
	CompleteOAuthCallback(ctx context.Context, rawURL string) (*model.User, error)
	Logout(ctx context.Context) error
	UpdateUser(ctx context.Context, user *model.User) error
	Revalidate(ctx context.Context) error
}

// RedirectStore はログイン後の戻り先を保持する。
type RedirectStore interface {
	SetRedirectURL(ctx context.Context, path string) error
	TakeRedirectURL(ctx context.Context) string
}

// SessionHandlerConfig はセッションハンドラーの設定。
type SessionHandlerConfig struct {
	// UnauthenticatedRoute はログアウト後・ログイン失敗時の遷移先。
	UnauthenticatedRoute string

	// GoogleLoginURL はバックエンドのGoogleログイン開始URL。空の場合 /auth/google は登録されない。
	GoogleLoginURL string
}

// SessionHandler はセッション関連のHTTPハンドラー。
type SessionHandler struct {
	service   SessionServiceInterface
	effects   *EffectRecorder
	redirects RedirectStore
	config    SessionHandlerConfig
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewSessionHandler はSessionHandlerを生成する。redirectsはnilでもよい。
func NewSessionHandler(service SessionServiceInterface, effects *EffectRecorder, redirects RedirectStore, config SessionHandlerConfig, logger *slog.Logger) *SessionHandler {
	if config.UnauthenticatedRoute == "" {
		config.UnauthenticatedRoute = auth.DefaultUnauthenticatedRoute
	}
	if logger == nil {
		logger = slog.Default()
	}
	if effects == nil {
		effects = NewEffectRecorder(logger)
	}
	return &SessionHandler{
		service:   service,
		effects:   effects,
		redirects: redirects,
		config:    config,
		validate:  validator.New(),
		logger:    logger,
	}
}

// loginRequest はログインのリクエストボディ。
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// updateUserRequest はプロフィール更新のリクエストボディ。
type updateUserRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Avatar      *string `json:"avatar" validate:"omitempty,url"`
	Handle      *string `json:"handle" validate:"omitempty,startswith=@,max=50"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Banner      *string `json:"banner" validate:"omitempty,url"`
}

// Get は現在のセッション状態を返す。
// GET /api/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.State())
}

// Login はメールアドレスとパスワードでログインする。
// POST /api/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, h.logger, model.NewValidationError("request body must be JSON {email, password}"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		middleware.WriteError(w, h.logger, model.NewValidationError("email and password are required"))
		return
	}

	if _, err := h.service.LoginWithPassword(r.Context(), req.Email, req.Password); err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, h.service.State())
}

// Logout はログアウトし、未認証ルートへリダイレクトする。
// POST /api/session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context()); err != nil {
		// 永続化の削除に失敗してもメモリ上はログアウト済みのため遷移させる
		h.logger.Error("logout failed", slog.String("error", err.Error()))
	}

	route := h.effects.TakeRedirect()
	if route == "" {
		route = h.config.UnauthenticatedRoute
	}
	http.Redirect(w, r, route, http.StatusSeeOther)
}

// UpdateUser はプロフィールを部分更新する。アカウントロックは変更しない。
// PATCH /api/session/user
func (h *SessionHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, h.logger, model.NewValidationError("request body must be a JSON object"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		middleware.WriteError(w, h.logger, model.NewValidationError(err.Error()))
		return
	}

	st := h.service.State()
	if !st.IsAuthenticated || st.User == nil {
		middleware.WriteError(w, h.logger, model.NewLoginRequiredError())
		return
	}

	updated := *st.User
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Avatar != nil {
		updated.Avatar = *req.Avatar
	}
	if req.Handle != nil {
		updated.Handle = *req.Handle
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.Banner != nil {
		updated.Banner = *req.Banner
	}

	if err := h.service.UpdateUser(r.Context(), &updated); err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.service.State())
}

// Check はトークンを再検証する。
// POST /api/session/check
func (h *SessionHandler) Check(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Revalidate(r.Context()); err != nil {
		middleware.WriteError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.service.State())
}

// GoogleLogin は戻り先を保存してからバックエンドのGoogleログインへリダイレクトする。
// redirectが同一オリジンのパスでない場合は保存しない。
// GET /auth/google?redirect=/studio
func (h *SessionHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if redirect := r.URL.Query().Get("redirect"); redirect != "" && h.redirects != nil {
		if isLocalPath(redirect) {
			if err := h.redirects.SetRedirectURL(r.Context(), redirect); err != nil {
				h.logger.Warn("failed to save redirect url", slog.String("error", err.Error()))
			}
		} else {
			h.logger.Warn("ignoring non-local redirect url", slog.String("redirect", redirect))
		}
	}
	http.Redirect(w, r, h.config.GoogleLoginURL, http.StatusSeeOther)
}

// OAuthCallback はバックエンドのGoogleログインからのリダイレクトを受け取る。
// 成功時は保存済みの戻り先（なければ "/"）、失敗時は未認証ルートへリダイレクトする。
// GET /auth/callback?token=...&user=...
func (h *SessionHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.CompleteOAuthCallback(r.Context(), r.URL.RequestURI()); err != nil {
		h.logger.Warn("oauth callback failed", slog.String("error", err.Error()))
		target := h.config.UnauthenticatedRoute + "?error=auth_failed"
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	target := "/"
	if h.redirects != nil {
		if saved := h.redirects.TakeRedirectURL(r.Context()); isLocalPath(saved) {
			target = saved
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// isLocalPath はオープンリダイレクトにならない同一オリジンのパスかを判定する。
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}

// compile-time interface check
var _ RedirectStore = (*auth.TokenStore)(nil)
