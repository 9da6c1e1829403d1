// Package session はクライアントの認証セッションのライフサイクルを管理する。
// 起動時の検証、定期的な再検証、ログイン・ログアウト・プロフィール更新を扱い、
// 状態遷移を購読者に通知する。
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/nebulastream/internal/auth"
	"github.com/hitoshi/nebulastream/internal/metrics"
	"github.com/hitoshi/nebulastream/internal/model"
)

// DefaultRevalidateInterval は定期再検証のデフォルト間隔。
const DefaultRevalidateInterval = 5 * time.Minute

// Phase はセッションの状態を表す。
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseLoading       Phase = "loading"
	PhaseAuthenticated Phase = "authenticated"
	PhaseAnonymous     Phase = "anonymous"
)

// State はセッション状態のスナップショット。
type State struct {
	User            *model.User `json:"user"`
	Token           string      `json:"-"`
	IsAuthenticated bool        `json:"isAuthenticated"`
	IsLoading       bool        `json:"isLoading"`
	Phase           Phase       `json:"phase"`
}

// UserID は認証済みユーザーのIDを返す。未認証の場合は空文字列。
func (s State) UserID() string {
	if !s.IsAuthenticated || s.User == nil {
		return ""
	}
	return s.User.ID
}

// CredentialStore は永続化された認証情報へのアクセスを提供する。
type CredentialStore interface {
	GetStoredCredential(ctx context.Context) (*model.Credential, bool)
	StoreCredential(ctx context.Context, user *model.User, token string) error
	ClearCredential(ctx context.Context) error
}

// SessionValidator はトークンを検証する。無効な場合はユーザーがnilとなる。
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*model.User, error)
}

// AccountGuard はアカウントロックとの一致を判定する。
type AccountGuard interface {
	Verify(ctx context.Context, candidate *model.User) bool
}

// Alerter はユーザーに対するブロッキングな警告表示の抽象。
type Alerter interface {
	Alert(message string)
}

// PasswordAuthenticator はメールアドレスとパスワードでバックエンドにログインする。
type PasswordAuthenticator interface {
	LoginWithPassword(ctx context.Context, email, password string) (*model.Credential, error)
}

// Ticker は再検証タイマーの抽象。テストで手動駆動できるようにする。
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory は指定間隔のTickerを生成する。
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker はtime.TickerによるTickerを生成する。
func NewTimeTicker(d time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(d)}
}

// Config はManagerの依存関係。
type Config struct {
	Store         CredentialStore
	Validator     SessionValidator
	Guard         AccountGuard
	Alerter       Alerter
	Authenticator PasswordAuthenticator
	Metrics       metrics.MetricsCollector
	Logger        *slog.Logger
	Interval      time.Duration
	NewTicker     TickerFactory
}

// Manager はセッションの状態機械。
//
// 状態を変更する操作（Init・Revalidateの確定・Login・Logout・UpdateUser）は opMu で直列化され、
// 購読者への通知は遷移の順に同期的に行われる。購読コールバックから状態を変更する操作を
// 呼び出してはならない。
type Manager struct {
	store         CredentialStore
	validator     SessionValidator
	guard         AccountGuard
	alerter       Alerter
	authenticator PasswordAuthenticator
	metrics       metrics.MetricsCollector
	logger        *slog.Logger
	interval      time.Duration
	newTicker     TickerFactory

	opMu  sync.Mutex
	mu    sync.RWMutex
	state State

	subMu       sync.Mutex
	subscribers map[int]func(State)
	nextSubID   int

	flight singleflight.Group
}

// NewManager はManagerを生成する。初期状態はUninitialized（IsLoading=true）。
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRevalidateInterval
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = NewTimeTicker
	}
	return &Manager{
		store:         cfg.Store,
		validator:     cfg.Validator,
		guard:         cfg.Guard,
		alerter:       cfg.Alerter,
		authenticator: cfg.Authenticator,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		interval:      cfg.Interval,
		newTicker:     cfg.NewTicker,
		state:         State{IsLoading: true, Phase: PhaseUninitialized},
		subscribers:   make(map[int]func(State)),
	}
}

// State は現在の状態のスナップショットを返す。
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe は状態遷移の通知先を登録し、登録解除用の関数を返す。
func (m *Manager) Subscribe(fn func(State)) func() {
	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subscribers, id)
		m.subMu.Unlock()
	}
}

// transition は状態を更新して購読者に通知する。opMu を保持した状態で呼ぶ。
func (m *Manager) transition(next State) {
	m.mu.Lock()
	prev := m.state.Phase
	m.state = next
	m.mu.Unlock()

	if prev != next.Phase {
		m.metrics.RecordSessionPhase(string(next.Phase))
		m.logger.Debug("session transition",
			slog.String("from", string(prev)),
			slog.String("to", string(next.Phase)),
		)
	}

	m.subMu.Lock()
	fns := make([]func(State), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}

func authenticatedState(user *model.User, token string) State {
	return State{User: user, Token: token, IsAuthenticated: true, Phase: PhaseAuthenticated}
}

func anonymousState() State {
	return State{Phase: PhaseAnonymous}
}

// Init は保存済みの認証情報を検証し、AuthenticatedまたはAnonymousに遷移する。
// 検証が完了するまでIsLoadingはtrueのまま。検証中にLoginされた場合は検証結果を破棄する。
func (m *Manager) Init(ctx context.Context) error {
	// 1. Loadingへ遷移
	m.opMu.Lock()
	m.transition(State{IsLoading: true, Phase: PhaseLoading})
	m.opMu.Unlock()

	// 2. 保存済み認証情報の読み出し
	cred, ok := m.store.GetStoredCredential(ctx)
	if !ok {
		m.metrics.RecordSessionValidation(metrics.OutcomeNoToken)
		m.opMu.Lock()
		defer m.opMu.Unlock()
		if m.State().Phase == PhaseLoading {
			m.transition(anonymousState())
		}
		return nil
	}

	// 3. バックエンドでトークンを検証
	user, verr := m.validator.Validate(ctx, cred.Token)
	if ctxErr := ctx.Err(); ctxErr != nil && user == nil {
		m.opMu.Lock()
		defer m.opMu.Unlock()
		if m.State().Phase == PhaseLoading {
			m.transition(anonymousState())
		}
		return ctxErr
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	if m.State().Phase != PhaseLoading {
		m.logger.Info("session initialization superseded by interactive login")
		return nil
	}

	// 4. 無効なトークン
	if user == nil {
		m.recordValidationFailure(verr)
		m.logger.Info("stored session is no longer valid", slog.String("reason", errString(verr)))
		cerr := m.store.ClearCredential(ctx)
		m.transition(anonymousState())
		return errors.Join(verr, cerr)
	}

	// 5. アカウントロックの照合
	if !m.guard.Verify(ctx, user) {
		m.metrics.RecordSessionValidation(metrics.OutcomeMismatch)
		m.metrics.RecordLockMismatch("init")
		m.logger.Error("account mismatch detected - logging out")
		cerr := m.store.ClearCredential(ctx)
		m.transition(anonymousState())
		return errors.Join(model.NewAccountMismatchError(), cerr)
	}

	// 6. 最新のユーザー情報（roleなど）で保存し直す
	m.metrics.RecordSessionValidation(metrics.OutcomeValid)
	if err := m.store.StoreCredential(ctx, user, cred.Token); err != nil {
		m.logger.Warn("failed to refresh stored user", slog.String("error", err.Error()))
	}
	m.transition(authenticatedState(user, cred.Token))
	m.logger.Info("session restored", slog.String("user_id", user.ID))
	return nil
}

// Revalidate は保存済みトークン（メモリ上の状態ではない）で再検証を1回行う。
// 同時に呼ばれた場合は1回の検証にまとめられる。
// トークンが保存されていなければ何もしない。無効・不一致の場合はLogoutする。
func (m *Manager) Revalidate(ctx context.Context) error {
	_, err, _ := m.flight.Do("revalidate", func() (any, error) {
		return nil, m.revalidate(ctx)
	})
	return err
}

func (m *Manager) revalidate(ctx context.Context) error {
	cred, ok := m.store.GetStoredCredential(ctx)
	if !ok {
		return nil
	}

	user, verr := m.validator.Validate(ctx, cred.Token)
	if ctxErr := ctx.Err(); ctxErr != nil && user == nil {
		return ctxErr
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	// 検証中にログアウトや別トークンでのログインがあった場合は結果を破棄する
	current, ok := m.store.GetStoredCredential(ctx)
	if !ok || current.Token != cred.Token {
		m.logger.Info("revalidation result discarded: stored credential changed")
		return nil
	}

	if user == nil {
		m.recordValidationFailure(verr)
		m.logger.Info("session expired or revoked - logging out", slog.String("reason", errString(verr)))
		return errors.Join(verr, m.logoutLocked(ctx))
	}

	if !m.guard.Verify(ctx, user) {
		m.metrics.RecordSessionValidation(metrics.OutcomeMismatch)
		m.metrics.RecordLockMismatch("revalidate")
		m.logger.Error("account switch detected - logging out")
		return errors.Join(model.NewAccountMismatchError(), m.logoutLocked(ctx))
	}

	m.metrics.RecordSessionValidation(metrics.OutcomeValid)
	if err := m.store.StoreCredential(ctx, user, cred.Token); err != nil {
		m.logger.Warn("failed to refresh stored user", slog.String("error", err.Error()))
	}
	if st := m.State(); st.IsAuthenticated && st.Token == cred.Token {
		m.transition(authenticatedState(user, cred.Token))
	}
	return nil
}

// Start はintervalごとの再検証をctxがキャンセルされるまで実行する。
func (m *Manager) Start(ctx context.Context) {
	ticker := m.newTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("セッション再検証を開始しました", slog.Duration("interval", m.interval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("セッション再検証を停止しました")
			return
		case <-ticker.C():
			if err := m.Revalidate(ctx); err != nil {
				m.logger.Warn("セッション再検証でエラーが発生しました", slog.String("error", err.Error()))
			}
		}
	}
}

// Run はInitを実行した後、Startで定期再検証を行う。
func (m *Manager) Run(ctx context.Context) {
	if err := m.Init(ctx); err != nil {
		m.logger.Info("session initialization finished without a session", slog.String("reason", err.Error()))
	}
	m.Start(ctx)
}

// Login はユーザーとトークンでセッションを確立する。
// アカウントロックに一致しない場合は警告を表示し、状態も保存内容も変更せずにエラーを返す。
func (m *Manager) Login(ctx context.Context, user *model.User, token string) error {
	if user == nil || token == "" {
		return model.NewMalformedAuthDataError()
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	if !m.guard.Verify(ctx, user) {
		m.metrics.RecordLockMismatch("login")
		m.logger.Error("attempting to login with different account - blocked")
		if m.alerter != nil {
			m.alerter.Alert(model.AccountMismatchMessage)
		}
		return model.NewAccountMismatchError()
	}

	if err := m.store.StoreCredential(ctx, user, token); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	m.transition(authenticatedState(user, token))
	m.logger.Info("user logged in", slog.String("user_id", user.ID))
	return nil
}

// LoginWithPassword はメールアドレスとパスワードでログインし、Loginへ渡す。
func (m *Manager) LoginWithPassword(ctx context.Context, email, password string) (*model.User, error) {
	if m.authenticator == nil {
		return nil, fmt.Errorf("password login is not configured")
	}
	cred, err := m.authenticator.LoginWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := m.Login(ctx, cred.User, cred.Token); err != nil {
		return nil, err
	}
	return cred.User, nil
}

// CompleteOAuthCallback はOAuthリダイレクトURLから認証情報を取り出してLoginへ渡す。
func (m *Manager) CompleteOAuthCallback(ctx context.Context, rawURL string) (*model.User, error) {
	cred, err := auth.ParseCallback(rawURL)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeOAuthFailed {
			m.logger.Warn("oauth login failed at backend", slog.String("message", apiErr.Message))
		} else {
			m.logger.Warn("failed to parse oauth callback", slog.String("error", err.Error()))
		}
		return nil, err
	}
	if err := m.Login(ctx, cred.User, cred.Token); err != nil {
		return nil, err
	}
	return cred.User, nil
}

// Logout は保存内容を消去してAnonymousへ遷移する。何度呼んでも結果は同じ。
func (m *Manager) Logout(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.logoutLocked(ctx)
}

func (m *Manager) logoutLocked(ctx context.Context) error {
	err := m.store.ClearCredential(ctx)
	m.transition(anonymousState())
	return err
}

// UpdateUser は認証中のユーザー情報を置き換えて保存し直す。アカウントロックの照合は行わない。
func (m *Manager) UpdateUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return model.NewValidationError("user is required")
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	st := m.State()
	if !st.IsAuthenticated || st.Token == "" {
		return model.NewLoginRequiredError()
	}
	if err := m.store.StoreCredential(ctx, user, st.Token); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	m.transition(authenticatedState(user, st.Token))
	return nil
}

func (m *Manager) recordValidationFailure(err error) {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		m.metrics.RecordSessionValidation(metrics.OutcomeExpired)
	case auth.IsTransportError(err):
		m.metrics.RecordSessionValidation(metrics.OutcomeTransport)
	default:
		m.metrics.RecordSessionValidation(metrics.OutcomeRejected)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
