package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/nebulastream/internal/model"
	"github.com/hitoshi/nebulastream/internal/repository"
)

// --- モック定義 ---

type recordingNavigator struct {
	routes []string
}

func (n *recordingNavigator) Navigate(route string) {
	n.routes = append(n.routes, route)
}

type recordingForgetter struct {
	calls int
	err   error
}

func (f *recordingForgetter) DisableAutoSelect(_ context.Context) error {
	f.calls++
	return f.err
}

type failingStore struct {
	repository.KeyValueStore
	deleteErr error
	getErr    error
}

func (s *failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.getErr != nil {
		return "", false, s.getErr
	}
	return s.KeyValueStore.Get(ctx, key)
}

func (s *failingStore) Delete(ctx context.Context, keys ...string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.KeyValueStore.Delete(ctx, keys...)
}

func newTestTokenStore(t *testing.T) (*TokenStore, *repository.MemoryKVRepo, *recordingNavigator, *recordingForgetter) {
	t.Helper()
	kv := repository.NewMemoryKVRepo()
	nav := &recordingNavigator{}
	fg := &recordingForgetter{}
	ts := NewTokenStore(kv, nil, TokenStoreConfig{Navigator: nav, Forgetter: fg})
	return ts, kv, nav, fg
}

func TestTokenStore_GetStoredCredential_Empty(t *testing.T) {
	ts, _, _, _ := newTestTokenStore(t)

	if cred, ok := ts.GetStoredCredential(context.Background()); ok || cred != nil {
		t.Errorf("GetStoredCredential = (%v, %v), want (nil, false)", cred, ok)
	}
}

func TestTokenStore_StoreAndGet(t *testing.T) {
	ts, kv, _, _ := newTestTokenStore(t)
	ctx := context.Background()

	user := &model.User{ID: "u1", Name: "Jane", Email: "jane@example.com", GoogleID: "g1", Role: model.RoleUser}
	if err := ts.StoreCredential(ctx, user, "T1"); err != nil {
		t.Fatalf("StoreCredential returned error: %v", err)
	}

	cred, ok := ts.GetStoredCredential(ctx)
	if !ok {
		t.Fatal("GetStoredCredential should find stored credential")
	}
	if cred.Token != "T1" || cred.User.ID != "u1" || cred.User.GoogleID != "g1" {
		t.Errorf("credential = %+v / %+v", cred, cred.User)
	}

	snap := kv.Snapshot()
	if snap[repository.KeyLockedGoogleID] != "g1" {
		t.Errorf("locked_google_id = %q, want %q", snap[repository.KeyLockedGoogleID], "g1")
	}
	if snap[repository.KeyLockedEmail] != "jane@example.com" {
		t.Errorf("locked_email = %q, want %q", snap[repository.KeyLockedEmail], "jane@example.com")
	}
}

func TestTokenStore_StoreCredential_KeepsOppositeLockField(t *testing.T) {
	ts, _, _, _ := newTestTokenStore(t)
	ctx := context.Background()

	if err := ts.StoreCredential(ctx, &model.User{ID: "u1", GoogleID: "g1"}, "T1"); err != nil {
		t.Fatalf("StoreCredential returned error: %v", err)
	}
	if err := ts.StoreCredential(ctx, &model.User{ID: "u1", Email: "jane@example.com"}, "T2"); err != nil {
		t.Fatalf("StoreCredential returned error: %v", err)
	}

	lock := ts.GetLock(ctx)
	if lock.GoogleID != "g1" || lock.Email != "jane@example.com" {
		t.Errorf("lock = %+v, want both fields set", lock)
	}
}

func TestTokenStore_GetStoredCredential_MalformedUser(t *testing.T) {
	ts, kv, _, _ := newTestTokenStore(t)
	ctx := context.Background()
	_ = kv.Set(ctx, repository.KeyAuthToken, "T1")
	_ = kv.Set(ctx, repository.KeyUserData, "{not json")

	if _, ok := ts.GetStoredCredential(ctx); ok {
		t.Error("malformed user_data should be treated as no session")
	}
}

func TestTokenStore_GetStoredCredential_TokenWithoutUser(t *testing.T) {
	ts, kv, _, _ := newTestTokenStore(t)
	_ = kv.Set(context.Background(), repository.KeyAuthToken, "T1")

	if _, ok := ts.GetStoredCredential(context.Background()); ok {
		t.Error("token without user_data should be treated as no session")
	}
}

func TestTokenStore_GetStoredCredential_StoreError(t *testing.T) {
	kv := &failingStore{KeyValueStore: repository.NewMemoryKVRepo(), getErr: errors.New("disk gone")}
	ts := NewTokenStore(kv, nil, TokenStoreConfig{})

	if _, ok := ts.GetStoredCredential(context.Background()); ok {
		t.Error("store errors should be treated as no session")
	}
}

func TestTokenStore_ClearCredential(t *testing.T) {
	ts, kv, nav, fg := newTestTokenStore(t)
	ctx := context.Background()

	_ = ts.StoreCredential(ctx, &model.User{ID: "u1", Email: "jane@example.com", GoogleID: "g1"}, "T1")
	_ = kv.Set(ctx, repository.KeyActiveChannel, "c1")

	if err := ts.ClearCredential(ctx); err != nil {
		t.Fatalf("ClearCredential returned error: %v", err)
	}

	snap := kv.Snapshot()
	for _, key := range []string{repository.KeyAuthToken, repository.KeyUserData, repository.KeyLockedGoogleID, repository.KeyLockedEmail} {
		if _, ok := snap[key]; ok {
			t.Errorf("key %q should be cleared", key)
		}
	}
	if snap[repository.KeyActiveChannel] != "c1" {
		t.Error("active_channel is owned by the channel context and must not be cleared here")
	}
	if ts.GetLock(ctx).IsSet() {
		t.Error("lock should be cleared")
	}
	if fg.calls != 1 {
		t.Errorf("DisableAutoSelect calls = %d, want 1", fg.calls)
	}
	if len(nav.routes) != 1 || nav.routes[0] != "/auth" {
		t.Errorf("navigated routes = %v, want [/auth]", nav.routes)
	}
}

func TestTokenStore_ClearCredential_Idempotent(t *testing.T) {
	ts, kv, _, _ := newTestTokenStore(t)
	ctx := context.Background()
	_ = ts.StoreCredential(ctx, &model.User{ID: "u1", GoogleID: "g1"}, "T1")

	if err := ts.ClearCredential(ctx); err != nil {
		t.Fatalf("first ClearCredential returned error: %v", err)
	}
	first := kv.Snapshot()
	if err := ts.ClearCredential(ctx); err != nil {
		t.Fatalf("second ClearCredential returned error: %v", err)
	}
	second := kv.Snapshot()

	if len(first) != len(second) {
		t.Errorf("store differs after second clear: %v vs %v", first, second)
	}
}

func TestTokenStore_ClearCredential_StillNavigatesOnStoreError(t *testing.T) {
	nav := &recordingNavigator{}
	fg := &recordingForgetter{err: errors.New("no idp")}
	kv := &failingStore{KeyValueStore: repository.NewMemoryKVRepo(), deleteErr: errors.New("locked")}
	ts := NewTokenStore(kv, nil, TokenStoreConfig{Navigator: nav, Forgetter: fg, UnauthenticatedRoute: "/signin"})

	if err := ts.ClearCredential(context.Background()); err == nil {
		t.Error("expected error when store delete fails")
	}
	if len(nav.routes) != 1 || nav.routes[0] != "/signin" {
		t.Errorf("navigated routes = %v, want [/signin]", nav.routes)
	}
}

func TestTokenStore_GetLock_NoLock(t *testing.T) {
	ts, _, _, _ := newTestTokenStore(t)

	if ts.GetLock(context.Background()).IsSet() {
		t.Error("fresh store should have no lock")
	}
}

func TestTokenStore_RedirectURL(t *testing.T) {
	ts, _, _, _ := newTestTokenStore(t)
	ctx := context.Background()

	if got := ts.TakeRedirectURL(ctx); got != "/" {
		t.Errorf("TakeRedirectURL (empty) = %q, want %q", got, "/")
	}
	if err := ts.SetRedirectURL(ctx, "/studio"); err != nil {
		t.Fatalf("SetRedirectURL returned error: %v", err)
	}
	if got := ts.TakeRedirectURL(ctx); got != "/studio" {
		t.Errorf("TakeRedirectURL = %q, want %q", got, "/studio")
	}
	if got := ts.TakeRedirectURL(ctx); got != "/" {
		t.Errorf("TakeRedirectURL should consume the value, got %q", got)
	}
}

func TestTokenStore_Token(t *testing.T) {
	ts, kv, _, _ := newTestTokenStore(t)
	ctx := context.Background()

	if tok, err := ts.Token(ctx); err != nil || tok != "" {
		t.Errorf("Token (empty) = (%q, %v), want (\"\", nil)", tok, err)
	}
	_ = kv.Set(ctx, repository.KeyAuthToken, "T9")
	_ = kv.Set(ctx, repository.KeyAdminToken, "A9")
	if tok, _ := ts.Token(ctx); tok != "T9" {
		t.Errorf("Token = %q, want %q", tok, "T9")
	}
	if tok, _ := ts.AdminToken(ctx); tok != "A9" {
		t.Errorf("AdminToken = %q, want %q", tok, "A9")
	}
}
