// Package like は評価トグルの結果から表示用の評価数を更新する。
package like

import (
	"sync"

	"github.com/hitoshi/nebulastream/internal/model"
)

// State はカウンターの表示状態。Currentは自分の評価で、未評価なら空。
type State struct {
	Likes    int            `json:"likes"`
	Dislikes int            `json:"dislikes"`
	Current  model.LikeType `json:"current,omitempty"`
}

// Counter は高評価・低評価の数と自分の評価を保持する。
// バックエンドのトグル結果（created/removed/updated）を受けて楽観的に更新し、0未満にはならない。
type Counter struct {
	mu    sync.Mutex
	state State
}

// NewCounter は初期値からCounterを生成する。
func NewCounter(stats model.LikeStats, current *model.Like) *Counter {
	c := &Counter{state: State{Likes: max(stats.Likes, 0), Dislikes: max(stats.Dislikes, 0)}}
	if current != nil {
		c.state.Current = current.Type
	}
	return c
}

// State は現在の状態を返す。
func (c *Counter) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Apply はkindでトグルした結果を反映し、更新後の状態を返す。
func (c *Counter) Apply(kind model.LikeType, result *model.ToggleLikeResult) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if result == nil {
		return c.state
	}

	switch result.Action {
	case model.ToggleCreated:
		c.add(kind, 1)
		c.state.Current = kind
	case model.ToggleRemoved:
		c.add(kind, -1)
		c.state.Current = ""
	case model.ToggleUpdated:
		if prev := c.state.Current; prev != "" && prev != kind {
			c.add(prev, -1)
		}
		c.add(kind, 1)
		c.state.Current = kind
	}
	return c.state
}

func (c *Counter) add(kind model.LikeType, delta int) {
	switch kind {
	case model.LikeTypeLike:
		c.state.Likes = max(c.state.Likes+delta, 0)
	case model.LikeTypeDislike:
		c.state.Dislikes = max(c.state.Dislikes+delta, 0)
	}
}
