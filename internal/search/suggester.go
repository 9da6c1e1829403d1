// Package search は検索ボックスの入力に追従するサジェスト取得を提供する。
package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/nebulastream/internal/model"
)

const (
	// DefaultDelay は最後の入力から検索を開始するまでの待ち時間。
	DefaultDelay = 300 * time.Millisecond
	// DefaultLimit は通知するサジェストの最大件数。
	DefaultLimit = 5
)

// Searcher はキーワードで動画を検索する。
type Searcher interface {
	Search(ctx context.Context, query string) ([]*model.Video, error)
}

// Result はサジェストの取得結果。Queryが空の場合はサジェストの消去を表す。
type Result struct {
	Query  string
	Videos []*model.Video
	Err    error
}

// Option はSuggesterの設定を行う。
type Option func(*Suggester)

// WithDelay は待ち時間を設定する。
func WithDelay(d time.Duration) Option {
	return func(s *Suggester) { s.delay = d }
}

// WithLimit は最大件数を設定する。
func WithLimit(n int) Option {
	return func(s *Suggester) { s.limit = n }
}

// WithLogger はロガーを設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Suggester) { s.logger = logger }
}

// Suggester は入力が止まってから検索を行い、最新の入力に対する結果だけを通知する。
type Suggester struct {
	searcher Searcher
	onResult func(Result)
	delay    time.Duration
	limit    int
	logger   *slog.Logger

	// deliverMu は通知を直列化する。通知の直前にseqを再確認する。
	deliverMu sync.Mutex

	mu       sync.Mutex
	seq      uint64
	timer    *time.Timer
	inflight context.CancelFunc
	closed   bool
	pending  sync.WaitGroup
}

// NewSuggester はSuggesterを生成する。onResultは別goroutineから呼ばれることがあるが、同時に複数呼ばれることはない。
// onResultの中からInputやCloseを呼んではならない。
func NewSuggester(searcher Searcher, onResult func(Result), opts ...Option) *Suggester {
	s := &Suggester{
		searcher: searcher,
		onResult: onResult,
		delay:    DefaultDelay,
		limit:    DefaultLimit,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Input は検索ボックスの入力を受け取る。
// 待機中の検索と実行中の検索は取り消される。空白のみの入力はサジェストを即座に消去する。
func (s *Suggester) Input(query string) {
	q := strings.TrimSpace(query)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq := s.seq
	s.stopLocked()

	if q == "" {
		s.mu.Unlock()
		s.deliver(seq, Result{})
		return
	}

	s.pending.Add(1)
	s.timer = time.AfterFunc(s.delay, func() {
		defer s.pending.Done()
		s.fetch(seq, q)
	})
	s.mu.Unlock()
}

// stopLocked は待機中のタイマーと実行中の検索を止める。
func (s *Suggester) stopLocked() {
	if s.timer != nil {
		if s.timer.Stop() {
			s.pending.Done()
		}
		s.timer = nil
	}
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
}

func (s *Suggester) fetch(seq uint64, q string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.mu.Lock()
	if seq != s.seq || s.closed {
		s.mu.Unlock()
		return
	}
	s.inflight = cancel
	s.mu.Unlock()

	videos, err := s.searcher.Search(ctx, q)

	s.mu.Lock()
	if seq != s.seq || s.closed {
		s.mu.Unlock()
		return
	}
	s.inflight = nil
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("failed to fetch suggestions",
			slog.String("query", q),
			slog.String("error", err.Error()),
		)
		s.deliver(seq, Result{Query: q, Err: err})
		return
	}

	if len(videos) > s.limit {
		videos = videos[:s.limit]
	}
	s.deliver(seq, Result{Query: q, Videos: videos})
}

// deliver はseqが最新の入力のままである場合だけonResultを呼ぶ。
func (s *Suggester) deliver(seq uint64, r Result) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	current := seq == s.seq && !s.closed
	s.mu.Unlock()
	if !current {
		return
	}
	s.onResult(r)
}

// Close は待機中・実行中の検索を取り消し、終了を待つ。以降の入力は無視される。
func (s *Suggester) Close() {
	s.mu.Lock()
	s.closed = true
	s.seq++
	s.stopLocked()
	s.mu.Unlock()

	s.pending.Wait()
}
