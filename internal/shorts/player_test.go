package shorts

import (
	"testing"

	"github.com/hitoshi/nebulastream/internal/model"
)

func threeShorts() []*model.Video {
	return []*model.Video{{ID: "s1"}, {ID: "s2"}, {ID: "s3"}}
}

func TestPlayer_Navigation(t *testing.T) {
	p := NewPlayer(threeShorts())

	if p.Current().ID != "s1" || p.Position() != "1 / 3" {
		t.Fatalf("初期位置 = %s (%s)", p.Current().ID, p.Position())
	}
	if p.HasPrev() || !p.HasNext() {
		t.Error("先頭では HasPrev=false, HasNext=true であるべき")
	}

	// 先頭でPrevすると末尾に戻る
	if v := p.Prev(); v.ID != "s3" || p.Position() != "3 / 3" {
		t.Errorf("Prev at start = %s (%s), want s3 (3 / 3)", v.ID, p.Position())
	}
	if v := p.Next(); v.ID != "s1" {
		t.Errorf("Next from last = %s, want s1", v.ID)
	}

	if !p.HandleKey(KeyDown) || p.Current().ID != "s2" {
		t.Errorf("ArrowDown → %s, want s2", p.Current().ID)
	}
	if !p.HandleKey(KeyUp) || p.Current().ID != "s1" {
		t.Errorf("ArrowUp → %s, want s1", p.Current().ID)
	}
	if p.HandleKey("Space") {
		t.Error("Space は処理しない")
	}
}

func TestPlayer_OnEndedWrapsToFirst(t *testing.T) {
	p := NewPlayer(threeShorts())

	p.OnEnded()
	p.OnEnded()
	if p.Position() != "3 / 3" || p.HasNext() {
		t.Fatalf("Position = %s", p.Position())
	}
	if v := p.OnEnded(); v.ID != "s1" {
		t.Errorf("末尾の次 = %s, want s1", v.ID)
	}
}

func TestPlayer_Empty(t *testing.T) {
	p := NewPlayer(nil)

	if p.Current() != nil || p.Next() != nil || p.Prev() != nil {
		t.Error("空の一覧では nil を返すべき")
	}
	if p.Position() != "0 / 0" {
		t.Errorf("Position = %q", p.Position())
	}

	p.Reset(threeShorts())
	if p.Len() != 3 || p.Index() != 0 {
		t.Errorf("Reset 後 Len=%d Index=%d", p.Len(), p.Index())
	}
}
