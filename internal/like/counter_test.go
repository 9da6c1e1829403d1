package like

import (
	"testing"

	"github.com/hitoshi/nebulastream/internal/model"
)

func toggle(action model.ToggleAction) *model.ToggleLikeResult {
	return &model.ToggleLikeResult{Action: action}
}

func TestCounter_Sequence(t *testing.T) {
	c := NewCounter(model.LikeStats{Likes: 10, Dislikes: 2}, nil)

	steps := []struct {
		name   string
		kind   model.LikeType
		action model.ToggleAction
		want   State
	}{
		{"高評価", model.LikeTypeLike, model.ToggleCreated, State{Likes: 11, Dislikes: 2, Current: model.LikeTypeLike}},
		{"低評価に変更", model.LikeTypeDislike, model.ToggleUpdated, State{Likes: 10, Dislikes: 3, Current: model.LikeTypeDislike}},
		{"低評価を取り消し", model.LikeTypeDislike, model.ToggleRemoved, State{Likes: 10, Dislikes: 2}},
	}

	for _, step := range steps {
		got := c.Apply(step.kind, toggle(step.action))
		if got != step.want {
			t.Errorf("%s: state = %+v, want %+v", step.name, got, step.want)
		}
	}
}

func TestCounter_NeverBelowZero(t *testing.T) {
	c := NewCounter(model.LikeStats{Likes: 0, Dislikes: -3}, &model.Like{Type: model.LikeTypeLike})

	got := c.Apply(model.LikeTypeLike, toggle(model.ToggleRemoved))
	if got.Likes != 0 || got.Dislikes != 0 || got.Current != "" {
		t.Errorf("state = %+v, want zeros", got)
	}
}

func TestCounter_NilResultKeepsState(t *testing.T) {
	c := NewCounter(model.LikeStats{Likes: 5}, nil)
	if got := c.Apply(model.LikeTypeLike, nil); got.Likes != 5 {
		t.Errorf("Likes = %d, want 5", got.Likes)
	}
	if c.State().Current != "" {
		t.Errorf("Current = %q, want empty", c.State().Current)
	}
}
