// Package shorts はショート動画の縦スクロール再生位置を管理する。
package shorts

import (
	"fmt"
	"sync"

	"github.com/hitoshi/nebulastream/internal/model"
)

// キー入力
const (
	KeyUp   = "ArrowUp"
	KeyDown = "ArrowDown"
)

// Player はショート動画一覧上のカーソル。
// Nextは末尾で先頭に、Prevは先頭で末尾に戻る。
type Player struct {
	mu     sync.Mutex
	videos []*model.Video
	index  int
}

// NewPlayer はPlayerを生成する。
func NewPlayer(videos []*model.Video) *Player {
	return &Player{videos: videos}
}

// Reset は一覧を差し替えて先頭に戻る。
func (p *Player) Reset(videos []*model.Video) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.videos = videos
	p.index = 0
}

// Len は動画数を返す。
func (p *Player) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.videos)
}

// Index は現在位置を返す。
func (p *Player) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Current は現在の動画を返す。一覧が空の場合はnil。
func (p *Player) Current() *model.Video {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.videos) == 0 {
		return nil
	}
	return p.videos[p.index]
}

// Next は次の動画に進む。末尾では先頭に戻る。
func (p *Player) Next() *model.Video {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.videos) == 0 {
		return nil
	}
	if p.index < len(p.videos)-1 {
		p.index++
	} else {
		p.index = 0
	}
	return p.videos[p.index]
}

// Prev は前の動画に戻る。先頭では末尾に戻る。
func (p *Player) Prev() *model.Video {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.videos) == 0 {
		return nil
	}
	if p.index > 0 {
		p.index--
	} else {
		p.index = len(p.videos) - 1
	}
	return p.videos[p.index]
}

// HasPrev は画面上の「前へ」ボタンを表示するかを返す。先頭ではfalse。
// Prev自体は先頭でも末尾へ回り込む。
func (p *Player) HasPrev() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index > 0
}

// HasNext は画面上の「次へ」ボタンを表示するかを返す。末尾ではfalse。
func (p *Player) HasNext() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index < len(p.videos)-1
}

// HandleKey はキー入力で移動する。処理したキーであればtrueを返す。
func (p *Player) HandleKey(key string) bool {
	switch key {
	case KeyUp:
		p.Prev()
		return true
	case KeyDown:
		p.Next()
		return true
	}
	return false
}

// OnEnded は再生終了時に次の動画へ自動で進む。
func (p *Player) OnEnded() *model.Video {
	return p.Next()
}

// Position は "i / n" 形式の位置表示を返す。
func (p *Player) Position() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.videos) == 0 {
		return "0 / 0"
	}
	return fmt.Sprintf("%d / %d", p.index+1, len(p.videos))
}
