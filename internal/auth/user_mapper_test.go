package auth

import (
	"testing"

	"github.com/hitoshi/nebulastream/internal/model"
)

func TestMapUser_Defaults(t *testing.T) {
	u := MapUser(RawUser{ID: "u1", Name: "Jane O'Neil 2", Email: "jane@example.com"})

	if u.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", u.Role, model.RoleUser)
	}
	if u.Handle != "@janeoneil2" {
		t.Errorf("Handle = %q, want %q", u.Handle, "@janeoneil2")
	}
	if u.Avatar != "https://ui-avatars.com/api/?background=random&name=Jane%20O%27Neil%202" {
		t.Errorf("Avatar = %q", u.Avatar)
	}
	if u.Subscribers != "0" {
		t.Errorf("Subscribers = %q, want %q", u.Subscribers, "0")
	}
}

func TestMapUser_PreservesBackendFields(t *testing.T) {
	u := MapUser(RawUser{
		ID:              "u1",
		Name:            "Admin",
		Picture:         "https://cdn.example.com/a.png",
		Handle:          "@boss",
		GoogleID:        "g1",
		IsEmailVerified: true,
		Role:            "admin",
	})

	if u.Role != model.RoleAdmin || !u.IsAdmin() {
		t.Errorf("Role = %q, want admin", u.Role)
	}
	if u.Handle != "@boss" {
		t.Errorf("Handle = %q, want %q", u.Handle, "@boss")
	}
	if u.Avatar != "https://cdn.example.com/a.png" {
		t.Errorf("Avatar = %q", u.Avatar)
	}
	if u.GoogleID != "g1" || !u.IsEmailVerified {
		t.Errorf("GoogleID/IsEmailVerified not preserved: %+v", u)
	}
}

func TestMapUser_AvatarFieldFallback(t *testing.T) {
	u := MapUser(RawUser{ID: "u1", Name: "X", Avatar: "https://cdn.example.com/x.png"})
	if u.Avatar != "https://cdn.example.com/x.png" {
		t.Errorf("Avatar = %q", u.Avatar)
	}
}

func TestSynthesizeHandle(t *testing.T) {
	cases := map[string]string{
		"Demo User":        "@demouser",
		"  Tabs\tand\nNL ": "@tabsandnl",
		"Émile Zola":       "@milezola",
		"":                 "@",
	}
	for in, want := range cases {
		if got := SynthesizeHandle(in); got != want {
			t.Errorf("SynthesizeHandle(%q) = %q, want %q", in, got, want)
		}
	}
}
