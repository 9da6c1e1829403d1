// Package channel は認証済みユーザーが所有するチャンネル一覧と、
// アップロードやスタジオ操作の対象となるアクティブチャンネルを管理する。
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/nebulastream/internal/metrics"
	"github.com/hitoshi/nebulastream/internal/model"
	"github.com/hitoshi/nebulastream/internal/repository"
	"github.com/hitoshi/nebulastream/internal/session"
)

// Phase はチャンネルコンテキストの状態を表す。
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
)

// Snapshot はチャンネルコンテキストの状態のスナップショット。
type Snapshot struct {
	Channels  []*model.Channel `json:"channels"`
	Active    *model.Channel   `json:"activeChannel"`
	IsLoading bool             `json:"isLoading"`
	Phase     Phase            `json:"phase"`
}

// SessionSource は観測対象のセッション。
type SessionSource interface {
	State() session.State
	Subscribe(fn func(session.State)) func()
}

// ChannelFetcher はログインユーザーのチャンネル一覧を取得する。
type ChannelFetcher interface {
	MyChannels(ctx context.Context) ([]*model.Channel, error)
}

// Config はContextの依存関係。
type Config struct {
	Store   repository.KeyValueStore
	Fetcher ChannelFetcher
	Metrics metrics.MetricsCollector
	Logger  *slog.Logger
}

// Context はセッションの認証状態に従ってチャンネル一覧を読み込む。
// セッションの初期検証中はIdleのまま待機する。
type Context struct {
	store   repository.KeyValueStore
	fetcher ChannelFetcher
	metrics metrics.MetricsCollector
	logger  *slog.Logger

	mu         sync.Mutex
	snap       Snapshot
	generation uint64
	userID     string
	baseCtx    context.Context

	loads sync.WaitGroup

	subMu       sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSubID   int

	detach func()
}

// New はContextを生成する。初期状態はIdle。
func New(cfg Config) *Context {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	return &Context{
		store:       cfg.Store,
		fetcher:     cfg.Fetcher,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		snap:        Snapshot{Phase: PhaseIdle},
		baseCtx:     context.Background(),
		subscribers: make(map[int]func(Snapshot)),
	}
}

// Attach はセッションの購読を開始し、現在の状態を即座に反映する。
// ctx はセッション通知から起動される読み込みに使われる。
func (c *Context) Attach(ctx context.Context, src SessionSource) {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()

	c.detach = src.Subscribe(c.onSession)
	c.onSession(src.State())
}

// Close はセッションの購読を解除し、実行中の読み込みの完了を待つ。
func (c *Context) Close() {
	if c.detach != nil {
		c.detach()
	}
	c.loads.Wait()
}

// Wait は実行中のバックグラウンド読み込みの完了を待つ。
func (c *Context) Wait() {
	c.loads.Wait()
}

// Snapshot は現在の状態を返す。
func (c *Context) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyLocked()
}

func (c *Context) copyLocked() Snapshot {
	s := c.snap
	s.Channels = append([]*model.Channel(nil), c.snap.Channels...)
	return s
}

// Subscribe は状態変化の通知先を登録し、登録解除用の関数を返す。
func (c *Context) Subscribe(fn func(Snapshot)) func() {
	c.subMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subscribers, id)
		c.subMu.Unlock()
	}
}

func (c *Context) notify(s Snapshot) {
	c.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// onSession はセッションの状態遷移に反応する。
func (c *Context) onSession(st session.State) {
	if st.IsLoading {
		return
	}

	if !st.IsAuthenticated {
		c.signOut()
		return
	}

	c.mu.Lock()
	if st.UserID() == c.userID {
		c.mu.Unlock()
		return
	}
	c.userID = st.UserID()
	gen := c.beginLoadLocked()
	ctx := c.baseCtx
	snap := c.copyLocked()
	c.mu.Unlock()
	c.notify(snap)

	c.loads.Add(1)
	go func() {
		defer c.loads.Done()
		_ = c.load(ctx, gen)
	}()
}

// signOut はチャンネル一覧とアクティブチャンネル、保存済みのIDを消去する。
func (c *Context) signOut() {
	c.mu.Lock()
	c.generation++
	c.userID = ""
	c.snap = Snapshot{Phase: PhaseReady}
	if err := c.store.Delete(c.baseCtx, repository.KeyActiveChannel); err != nil {
		c.logger.Warn("failed to remove active channel", slog.String("error", err.Error()))
	}
	snap := c.copyLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Context) beginLoadLocked() uint64 {
	c.generation++
	c.snap.IsLoading = true
	c.snap.Phase = PhaseLoading
	return c.generation
}

// load はチャンネル一覧を取得してアクティブチャンネルを決定する。
// 取得中にサインアウトや別の読み込みが始まった場合、結果は破棄される。
func (c *Context) load(ctx context.Context, gen uint64) error {
	channels, err := c.fetcher.MyChannels(ctx)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug("discarding superseded channel load", slog.Uint64("generation", gen))
		return nil
	}

	if err != nil {
		c.metrics.RecordChannelLoad(false, 0)
		c.logger.Error("failed to load channels", slog.String("error", err.Error()))
		c.snap = Snapshot{Phase: PhaseReady}
		snap := c.copyLocked()
		c.mu.Unlock()
		c.notify(snap)
		return fmt.Errorf("failed to load channels: %w", err)
	}

	c.metrics.RecordChannelLoad(true, len(channels))
	active := c.resolveActiveLocked(ctx, channels)
	c.snap = Snapshot{Channels: channels, Active: active, Phase: PhaseReady}
	snap := c.copyLocked()
	c.mu.Unlock()
	c.notify(snap)

	c.logger.Info("channels loaded", slog.Int("count", len(channels)))
	return nil
}

// resolveActiveLocked は保存済みIDのチャンネルを復元し、見つからなければ先頭を選んで保存する。
func (c *Context) resolveActiveLocked(ctx context.Context, channels []*model.Channel) *model.Channel {
	savedID, _, err := c.store.Get(ctx, repository.KeyActiveChannel)
	if err != nil {
		c.logger.Warn("failed to read active channel", slog.String("error", err.Error()))
	}

	if savedID != "" {
		if ch := model.FindChannel(channels, savedID); ch != nil {
			return ch
		}
	}
	if len(channels) == 0 {
		return nil
	}

	first := channels[0]
	if err := c.store.Set(ctx, repository.KeyActiveChannel, first.ID); err != nil {
		c.logger.Warn("failed to persist active channel", slog.String("error", err.Error()))
	}
	return first
}

// SetActiveChannel はアクティブチャンネルを変更して保存する。nilの場合は保存済みIDを削除する。
// ネットワーク呼び出しは行わない。
func (c *Context) SetActiveChannel(ctx context.Context, ch *model.Channel) error {
	c.mu.Lock()
	c.snap.Active = ch
	var err error
	if ch != nil {
		err = c.store.Set(ctx, repository.KeyActiveChannel, ch.ID)
	} else {
		err = c.store.Delete(ctx, repository.KeyActiveChannel)
	}
	snap := c.copyLocked()
	c.mu.Unlock()
	c.notify(snap)

	if err != nil {
		return fmt.Errorf("failed to persist active channel: %w", err)
	}
	return nil
}

// SetActiveChannelByID は読み込み済みの一覧からIDでチャンネルを選ぶ。空文字列は選択解除。
func (c *Context) SetActiveChannelByID(ctx context.Context, id string) (*model.Channel, error) {
	if id == "" {
		return nil, c.SetActiveChannel(ctx, nil)
	}

	c.mu.Lock()
	ch := model.FindChannel(c.snap.Channels, id)
	c.mu.Unlock()
	if ch == nil {
		return nil, model.NewChannelNotFoundError(id)
	}
	return ch, c.SetActiveChannel(ctx, ch)
}

// RefreshChannels はチャンネル一覧を再取得する。認証されていない場合はエラーを返す。
func (c *Context) RefreshChannels(ctx context.Context) error {
	c.mu.Lock()
	if c.userID == "" {
		c.mu.Unlock()
		return model.NewLoginRequiredError()
	}
	gen := c.beginLoadLocked()
	snap := c.copyLocked()
	c.mu.Unlock()
	c.notify(snap)

	return c.load(ctx, gen)
}
