package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/hitoshi/nebulastream/internal/model"
)

func TestAuthService_Login(t *testing.T) {
	c, _ := newTestClient(t, staticTokens{}, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("ログインにはトークンを付与しない")
		}
		var body LoginRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.Email != "jane@example.com" || body.Password != "secret" {
			t.Errorf("body = %+v", body)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user":         map[string]any{"id": "u1", "name": "Jane Doe", "email": "jane@example.com"},
			"access_token": "tok-1",
		})
	})

	cred, err := c.Auth.LoginWithPassword(context.Background(), "jane@example.com", "secret")
	if err != nil {
		t.Fatalf("Login がエラーを返した: %v", err)
	}
	if cred.Token != "tok-1" || cred.User.ID != "u1" {
		t.Errorf("cred = %+v", cred)
	}
	if cred.User.Handle != "@janedoe" || cred.User.Role != model.RoleUser {
		t.Errorf("MapUser が適用されていない: %+v", cred.User)
	}
}

func TestAuthService_LoginRejected(t *testing.T) {
	c, _ := newTestClient(t, staticTokens{}, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
	})

	_, err := c.Auth.Login(context.Background(), "jane@example.com", "wrong")
	if err == nil || !strings.Contains(err.Error(), "Invalid email or password") {
		t.Errorf("err = %v, want Invalid email or password", err)
	}
}

func TestAuthService_LoginMissingToken(t *testing.T) {
	c, _ := newTestClient(t, staticTokens{}, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": "u1"}})
	})

	_, err := c.Auth.Login(context.Background(), "jane@example.com", "secret")
	if err == nil || !strings.Contains(err.Error(), model.ErrCodeMalformedAuthData) {
		t.Errorf("err = %v, want MALFORMED_AUTH_DATA", err)
	}
}

func TestAuthService_GoogleMockDefaults(t *testing.T) {
	c, _ := newTestClient(t, staticTokens{}, func(w http.ResponseWriter, r *http.Request) {
		var body GoogleMockRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.Email != DefaultMockEmail || body.Name != DefaultMockName {
			t.Errorf("body = %+v", body)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user":         map[string]any{"id": "g1", "name": body.Name, "email": body.Email, "googleId": "gid"},
			"access_token": "tok-g",
		})
	})

	cred, err := c.Auth.GoogleMock(context.Background(), "", "")
	if err != nil {
		t.Fatalf("GoogleMock がエラーを返した: %v", err)
	}
	if cred.User.GoogleID != "gid" {
		t.Errorf("GoogleID = %q", cred.User.GoogleID)
	}
}

func TestAuthService_ResetPasswordMismatch(t *testing.T) {
	c, calls := newTestClient(t, staticTokens{}, func(w http.ResponseWriter, r *http.Request) {})

	err := c.Auth.ResetPassword(context.Background(), ResetPasswordRequest{
		Token: "rt", NewPassword: "secret1", ConfirmPassword: "secret2",
	})
	if err == nil || !strings.Contains(err.Error(), "confirmPassword") {
		t.Errorf("err = %v, want confirmPassword validation error", err)
	}
	if calls.Load() != 0 {
		t.Errorf("リクエスト数 = %d, want 0", calls.Load())
	}
}

func TestVideosService_UploadReportsProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 256*1024)

	c, _ := newTestClient(t, staticTokens{token: "t"}, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if r.FormValue("title") != "Cats" || r.FormValue("tags") != "a,b" || r.FormValue("isShort") != "true" {
			t.Errorf("form = %v", r.MultipartForm.Value)
		}
		if r.FormValue("channelId") != "ch1" {
			t.Errorf("channelId = %q", r.FormValue("channelId"))
		}
		f, hdr, err := r.FormFile("video")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if hdr.Filename != "cats.mp4" || len(data) != len(payload) {
			t.Errorf("file = %s (%d bytes)", hdr.Filename, len(data))
		}
		writeJSON(w, http.StatusCreated, map[string]any{"message": "ok", "video": map[string]any{"id": "v1", "title": "Cats"}})
	})

	var mu sync.Mutex
	var reports []int
	res, err := c.Videos.Upload(context.Background(),
		UploadFile{Reader: bytes.NewReader(payload), Name: "cats.mp4", Size: int64(len(payload))},
		UploadVideoRequest{Title: "Cats", Tags: []string{"a", "b"}, IsShort: true, ChannelID: "ch1"},
		func(p int) {
			mu.Lock()
			reports = append(reports, p)
			mu.Unlock()
		},
	)
	if err != nil {
		t.Fatalf("Upload がエラーを返した: %v", err)
	}
	if res.Video == nil || res.Video.ID != "v1" {
		t.Errorf("result = %+v", res)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reports) < 2 || reports[len(reports)-1] != 100 {
		t.Fatalf("reports = %v, want increasing values ending in 100", reports)
	}
	for i := 1; i < len(reports); i++ {
		if reports[i] < reports[i-1] {
			t.Errorf("進捗が減少した: %v", reports)
		}
	}
}

func TestVideosService_UploadWithoutTokenFailsFast(t *testing.T) {
	c, calls := newTestClient(t, staticTokens{}, func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.Videos.Upload(context.Background(),
		UploadFile{Reader: strings.NewReader("data"), Name: "a.mp4"},
		UploadVideoRequest{Title: "A"}, nil)
	if !IsUnauthorized(err) {
		t.Errorf("err = %v, want login required", err)
	}
	if calls.Load() != 0 {
		t.Errorf("リクエスト数 = %d, want 0", calls.Load())
	}
}

func TestVideosService_RecordViewWithoutToken(t *testing.T) {
	c, calls := newTestClient(t, staticTokens{}, func(w http.ResponseWriter, r *http.Request) {})

	view, err := c.Videos.RecordView(context.Background(), "v1")
	if err != nil || view != nil {
		t.Errorf("RecordView = (%v, %v), want (nil, nil)", view, err)
	}
	if calls.Load() != 0 {
		t.Errorf("リクエスト数 = %d, want 0", calls.Load())
	}
}

func TestVideosService_UpdateWatchTimeSwallowsErrors(t *testing.T) {
	c, calls := newTestClient(t, staticTokens{token: "t"}, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("視聴時間の更新にはトークンを付与しない")
		}
		if r.URL.Path != "/views/view1/watch-time" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	c.Videos.UpdateWatchTime(context.Background(), "view1", WatchTimeRequest{WatchTime: 12.5, Completed: true})
	if calls.Load() != 1 {
		t.Errorf("リクエスト数 = %d, want 1", calls.Load())
	}
}

func TestTolerantMethods_ReturnZeroValuesOnFailure(t *testing.T) {
	c, _ := newTestClient(t, staticTokens{token: "t"}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx := context.Background()

	if c.Subscriptions.IsSubscribed(ctx, "ch1") {
		t.Error("IsSubscribed = true, want false")
	}
	if c.WatchLater.Check(ctx, "v1") {
		t.Error("WatchLater.Check = true, want false")
	}
	if n := c.WatchLater.Count(ctx); n != 0 {
		t.Errorf("WatchLater.Count = %d, want 0", n)
	}
	if n := c.Downloads.Count(ctx); n != 0 {
		t.Errorf("Downloads.Count = %d, want 0", n)
	}
	if like := c.Likes.UserLike(ctx, "v1", model.TargetVideo); like != nil {
		t.Errorf("UserLike = %+v, want nil", like)
	}
}

func TestTolerantMethods_Success(t *testing.T) {
	c, _ := newTestClient(t, staticTokens{token: "t"}, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/subscriptions/check/ch1":
			writeJSON(w, http.StatusOK, map[string]bool{"isSubscribed": true})
		case "/watch-later/check/v1":
			writeJSON(w, http.StatusOK, map[string]bool{"isInWatchLater": true})
		case "/watch-later/count", "/downloads/count":
			writeJSON(w, http.StatusOK, map[string]int{"count": 4})
		case "/likes/user/v1":
			if r.URL.Query().Get("targetType") != "video" {
				t.Errorf("targetType = %q", r.URL.Query().Get("targetType"))
			}
			io.WriteString(w, "null")
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	if !c.Subscriptions.IsSubscribed(ctx, "ch1") {
		t.Error("IsSubscribed = false, want true")
	}
	if !c.WatchLater.Check(ctx, "v1") {
		t.Error("WatchLater.Check = false, want true")
	}
	if c.WatchLater.Count(ctx) != 4 || c.Downloads.Count(ctx) != 4 {
		t.Error("Count = want 4")
	}
	if like := c.Likes.UserLike(ctx, "v1", model.TargetVideo); like != nil {
		t.Errorf("UserLike = %+v, want nil for null body", like)
	}
}

func TestLikesService_Toggle(t *testing.T) {
	c, _ := newTestClient(t, staticTokens{token: "t"}, func(w http.ResponseWriter, r *http.Request) {
		var body ToggleLikeRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.TargetType != model.TargetComment || body.Type != model.LikeTypeDislike {
			t.Errorf("body = %+v", body)
		}
		writeJSON(w, http.StatusOK, map[string]any{"action": "created"})
	})

	res, err := c.Likes.Toggle(context.Background(), ToggleLikeRequest{
		TargetID: "c1", TargetType: model.TargetComment, Type: model.LikeTypeDislike,
	})
	if err != nil {
		t.Fatalf("Toggle がエラーを返した: %v", err)
	}
	if res.Action != model.ToggleCreated {
		t.Errorf("Action = %q, want created", res.Action)
	}

	if _, err := c.Likes.Toggle(context.Background(), ToggleLikeRequest{TargetID: "c1", TargetType: "post", Type: model.LikeTypeLike}); err == nil {
		t.Error("不正な targetType はエラーになるべき")
	}
}

func TestDownloadsService_Download(t *testing.T) {
	c, _ := newTestClient(t, staticTokens{token: "t"}, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/downloads/file/missing" {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Video file not found"})
			return
		}
		io.WriteString(w, "binary-video")
	})

	var buf bytes.Buffer
	n, err := c.Downloads.Download(context.Background(), "v1", &buf)
	if err != nil {
		t.Fatalf("Download がエラーを返した: %v", err)
	}
	if n != int64(len("binary-video")) || buf.String() != "binary-video" {
		t.Errorf("downloaded %d bytes: %q", n, buf.String())
	}

	_, err = c.Downloads.Download(context.Background(), "missing", &buf)
	if !IsNotFound(err) || err.Error() != "Video file not found" {
		t.Errorf("err = %v, want 404 Video file not found", err)
	}
}

func TestSettingsService_GetFillsDefaults(t *testing.T) {
	c, _ := newTestClient(t, staticTokens{}, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"site_name": "My Tube"})
	})

	s := c.Settings.Get(context.Background())
	if s.SiteName != "My Tube" {
		t.Errorf("SiteName = %q", s.SiteName)
	}
	if s.SiteTagline != model.DefaultSiteTagline || s.SiteDescription != model.DefaultSiteDescription {
		t.Errorf("defaults not applied: %+v", s)
	}
}

func TestSettingsService_GetFailureUsesDefaults(t *testing.T) {
	c, _ := newTestClient(t, staticTokens{}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	s := c.Settings.Get(context.Background())
	if s.SiteName != model.DefaultSiteName {
		t.Errorf("SiteName = %q, want %q", s.SiteName, model.DefaultSiteName)
	}
}

func TestAdminService_UpdateRoleValidation(t *testing.T) {
	c, calls := newTestClient(t, staticTokens{admin: "a"}, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if r.Method != http.MethodPut || body["role"] != "admin" {
			t.Errorf("request = %s %v", r.Method, body)
		}
	})

	if err := c.Admin.UpdateRole(context.Background(), "u1", "owner"); err == nil {
		t.Error("不正なロールはエラーになるべき")
	}
	if err := c.Admin.UpdateRole(context.Background(), "u1", model.RoleAdmin); err != nil {
		t.Errorf("UpdateRole がエラーを返した: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("リクエスト数 = %d, want 1", calls.Load())
	}
}
