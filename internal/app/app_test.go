package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/nebulastream/internal/config"
	"github.com/hitoshi/nebulastream/internal/model"
)

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:4000/api/")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:4000/api" {
		t.Errorf("APIBaseURL = %q, want trailing slash trimmed", cfg.APIBaseURL)
	}

	// LOG_LEVEL=debug が反映されたJSONログであること
	slog.Default().Debug("init test")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("STORE_DRIVER", "memory")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	got := maskDatabaseURL("postgres://user:secret@db:5432/nebula?sslmode=disable")
	if strings.Contains(got, "secret") {
		t.Errorf("password must be masked: %q", got)
	}
	if maskDatabaseURL("/home/me/.nebulastream/client.db") != "***" {
		t.Error("non-URL DSN must be fully masked")
	}
}

func TestOpenStore_SQLiteRunsMigrations(t *testing.T) {
	cfg := &config.Config{StoreDriver: config.StoreDriverSQLite, StorePath: t.TempDir() + "/nested/client.db"}
	store, closeStore, err := OpenStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer closeStore()

	ctx := context.Background()
	if err := store.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, err := store.Get(ctx, "k"); err != nil || !ok || v != "v" {
		t.Errorf("Get = %q, %v, %v", v, ok, err)
	}
}

func TestOpenStore_UnsupportedDriver(t *testing.T) {
	if _, _, err := OpenStore(context.Background(), &config.Config{StoreDriver: "etcd"}); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRunHealthcheck(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ok.Close()

	if err := runHealthcheck(context.Background(), ok.URL+"/health"); err != nil {
		t.Errorf("healthy server: %v", err)
	}
	if err := runHealthcheck(context.Background(), ok.URL+"/missing"); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestAwaitOAuthCallback(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	var gotURL string
	complete := func(_ context.Context, rawURL string) (*model.User, error) {
		gotURL = rawURL
		return &model.User{ID: "u1", Name: "Jane"}, nil
	}

	done := make(chan struct{})
	var user *model.User
	var awaitErr error
	go func() {
		defer close(done)
		user, awaitErr = awaitOAuthCallback(context.Background(), ln, complete)
	}()

	target := "http://" + ln.Addr().String() + "/auth/callback?token=t1&user=" + url.QueryEscape(`{"id":"u1"}`)
	resp, err := http.Get(target)
	if err != nil {
		t.Fatalf("GET callback: %v", err)
	}
	resp.Body.Close()
	<-done

	if awaitErr != nil || user == nil || user.ID != "u1" {
		t.Fatalf("user = %+v, err = %v", user, awaitErr)
	}
	if !strings.HasPrefix(gotURL, "/auth/callback?token=t1&user=") {
		t.Errorf("callback URL = %q", gotURL)
	}
}

func TestAwaitOAuthCallback_Timeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = awaitOAuthCallback(ctx, ln, func(context.Context, string) (*model.User, error) {
		t.Error("complete must not be called")
		return nil, nil
	})
	if err == nil {
		t.Error("expected timeout error")
	}
}

func TestNewHostRouter_HealthAndMetrics(t *testing.T) {
	cfg := &config.Config{
		APIBaseURL:           "http://127.0.0.1:1",
		StoreDriver:          config.StoreDriverMemory,
		UnauthenticatedRoute: "/auth",
		DevMode:              true,
	}
	rt, err := NewRuntime(context.Background(), cfg, slog.Default(), RuntimeOptions{})
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	router := NewHostRouter(rt, nil)

	for path, want := range map[string]string{
		"/health":      `"status":"ok"`,
		"/metrics":     "nebulastream_api_latency_seconds",
		"/api/session": `"phase":"uninitialized"`,
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, w.Code)
			continue
		}
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("%s: body does not contain %q", path, want)
		}
	}
}
