package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hitoshi/nebulastream/internal/model"
)

// --- モック定義 ---

type staticTokens struct {
	token string
	admin string
}

func (s staticTokens) Token(ctx context.Context) (string, error)      { return s.token, nil }
func (s staticTokens) AdminToken(ctx context.Context) (string, error) { return s.admin, nil }

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// newTestClient はテスト用サーバーに向けたClientを生成する。
func newTestClient(t *testing.T, tokens TokenReader, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	var buf bytes.Buffer
	c := NewClient(server.URL,
		WithHTTPClient(server.Client()),
		WithTokens(tokens),
		WithRateLimit(0, 0),
		WithLogger(newTestLogger(&buf)),
	)
	return c, &calls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNewClient_TrimsBaseURL(t *testing.T) {
	c := NewClient("http://localhost:4000/")
	if c.BaseURL() != "http://localhost:4000" {
		t.Errorf("BaseURL = %q, want http://localhost:4000", c.BaseURL())
	}
	if got := c.Videos.StreamURL("v 1"); got != "http://localhost:4000/videos/v%201/stream" {
		t.Errorf("StreamURL = %q", got)
	}
	if got := c.Videos.ThumbnailURL("v1"); got != "http://localhost:4000/videos/v1/thumbnail" {
		t.Errorf("ThumbnailURL = %q", got)
	}
}

func TestClient_RequiredAuthFailsFastWithoutToken(t *testing.T) {
	c, calls := newTestClient(t, staticTokens{}, func(w http.ResponseWriter, r *http.Request) {
		t.Error("トークンが無い場合はリクエストを送ってはならない")
	})

	_, err := c.Channels.MyChannels(context.Background())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeLoginRequired {
		t.Fatalf("err = %v, want LOGIN_REQUIRED", err)
	}
	if apiErr.Message != "You must be logged in to perform this action" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if !IsUnauthorized(err) {
		t.Error("IsUnauthorized = false, want true")
	}
	if calls.Load() != 0 {
		t.Errorf("リクエスト数 = %d, want 0", calls.Load())
	}
}

func TestClient_NilTokenReaderFailsFast(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", WithRateLimit(0, 0))
	if _, err := c.Videos.Mine(context.Background()); !IsUnauthorized(err) {
		t.Errorf("err = %v, want login required", err)
	}
}

func TestClient_SetsBearerAndCommonHeaders(t *testing.T) {
	c, _ := newTestClient(t, staticTokens{token: "user-token"}, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer user-token" {
			t.Errorf("Authorization = %q, want Bearer user-token", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("X-Request-ID が設定されていない")
		}
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if r.URL.Path != "/channels/my-channels" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "ch1", "name": "Main"}, {"id": "ch2", "name": "Second"}})
	})

	channels, err := c.Channels.MyChannels(context.Background())
	if err != nil {
		t.Fatalf("MyChannels がエラーを返した: %v", err)
	}
	if len(channels) != 2 || channels[0].ID != "ch1" {
		t.Errorf("channels = %+v", channels)
	}
}

func TestClient_AdminEndpointsUseAdminToken(t *testing.T) {
	c, _ := newTestClient(t, staticTokens{token: "user-token", admin: "admin-token"}, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer admin-token" {
			t.Errorf("Authorization = %q, want Bearer admin-token", got)
		}
		writeJSON(w, http.StatusOK, map[string]int{"totalUsers": 3})
	})

	stats, err := c.Admin.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("DashboardStats がエラーを返した: %v", err)
	}
	if stats.TotalUsers != 3 {
		t.Errorf("TotalUsers = %d, want 3", stats.TotalUsers)
	}
}

func TestClient_AdminWithoutAdminTokenFailsFast(t *testing.T) {
	c, calls := newTestClient(t, staticTokens{token: "user-token"}, func(w http.ResponseWriter, r *http.Request) {})

	if err := c.Admin.DeleteUser(context.Background(), "u1"); !IsUnauthorized(err) {
		t.Errorf("err = %v, want login required", err)
	}
	if calls.Load() != 0 {
		t.Errorf("リクエスト数 = %d, want 0", calls.Load())
	}
}

func TestClient_OptionalAuthSendsWithoutToken(t *testing.T) {
	c, _ := newTestClient(t, staticTokens{}, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("Authorization = %q, want empty", r.Header.Get("Authorization"))
		}
		writeJSON(w, http.StatusOK, []map[string]any{{"id": "s1", "isShort": true}})
	})

	shorts, err := c.Videos.Shorts(context.Background())
	if err != nil {
		t.Fatalf("Shorts がエラーを返した: %v", err)
	}
	if len(shorts) != 1 || !shorts[0].IsShort {
		t.Errorf("shorts = %+v", shorts)
	}
}

func TestClient_TransportErrorRewritesMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL
	server.Close()

	c := NewClient(base, WithRateLimit(0, 0), WithTokens(staticTokens{token: "t"}))
	_, err := c.Videos.Trending(context.Background())

	if !IsTransportError(err) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	want := "Cannot connect to server. Make sure the backend is running on " + base
	if err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
	var te *TransportError
	if errors.As(err, &te) && te.APIError().Code != model.ErrCodeTransport {
		t.Errorf("APIError().Code = %q", te.APIError().Code)
	}
}

func TestClient_CancelledContext(t *testing.T) {
	c, _ := newTestClient(t, staticTokens{}, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Videos.Trending(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
	}{
		{"flat message", http.StatusNotFound, `{"message":"Video not found","error":"Not Found"}`, "Video not found", "Not Found"},
		{"message array", http.StatusBadRequest, `{"message":["title should not be empty","tags must be an array"],"error":"Bad Request"}`, "title should not be empty; tags must be an array", "Bad Request"},
		{"nested error", http.StatusForbidden, `{"error":{"code":"FORBIDDEN","message":"Admins only"}}`, "Admins only", "FORBIDDEN"},
		{"no body", http.StatusInternalServerError, ``, "HTTP 500: Internal Server Error", "Internal Server Error"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, "HTTP 502: Bad Gateway", "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, staticTokens{}, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := c.Videos.Get(context.Background(), "v1")
			apiErr, ok := IsAPIError(err)
			if !ok {
				t.Fatalf("err = %v, want *Error", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
			if apiErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", apiErr.Code, tt.wantCode)
			}
		})
	}
}

func TestError_Predicates(t *testing.T) {
	notFound := &Error{StatusCode: http.StatusNotFound}
	if !notFound.IsNotFound() || !IsNotFound(notFound) {
		t.Error("404 は IsNotFound であるべき")
	}
	if (&Error{StatusCode: http.StatusUnauthorized}).IsUnauthorized() != true {
		t.Error("401 は IsUnauthorized であるべき")
	}
	if !(&Error{StatusCode: http.StatusForbidden}).IsForbidden() {
		t.Error("403 は IsForbidden であるべき")
	}
	if !(&Error{StatusCode: http.StatusBadRequest}).IsValidationError() {
		t.Error("400 は IsValidationError であるべき")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("通常のエラーは IsNotFound ではない")
	}
	if !IsTransportError(model.NewTransportError("http://x")) {
		t.Error("TRANSPORT_FAILURE の APIError は IsTransportError であるべき")
	}
}

func TestClient_ValidationRejectsBeforeRequest(t *testing.T) {
	c, calls := newTestClient(t, staticTokens{token: "t"}, func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.Comments.Create(context.Background(), CreateCommentRequest{Content: "", VideoID: "v1"})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
		t.Fatalf("err = %v, want VALIDATION_FAILED", err)
	}
	if !strings.Contains(apiErr.Message, "content") {
		t.Errorf("Message = %q, want field name content", apiErr.Message)
	}
	if calls.Load() != 0 {
		t.Errorf("リクエスト数 = %d, want 0", calls.Load())
	}
}

func TestClient_QueryParameters(t *testing.T) {
	c, _ := newTestClient(t, staticTokens{}, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("limit") != "10" || q.Get("search") != "cats & dogs" {
			t.Errorf("query = %v", q)
		}
		writeJSON(w, http.StatusOK, map[string]any{"channels": []any{}, "total": 0, "page": 2})
	})

	list, err := c.Channels.List(context.Background(), Pagination{Page: 2, Limit: 10, Search: "cats & dogs"})
	if err != nil {
		t.Fatalf("List がエラーを返した: %v", err)
	}
	if list.Page != 2 {
		t.Errorf("Page = %d, want 2", list.Page)
	}
}
