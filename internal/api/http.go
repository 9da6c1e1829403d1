package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hitoshi/nebulastream/internal/model"
)

// userAgent はバックエンドに送るUser-Agent。
const userAgent = "NebulaStream-Client/1.0 (Go)"

// authMode はリクエストにどのトークンを付与するかを表す。
type authMode int

const (
	// authNone はトークンを付与しない。
	authNone authMode = iota
	// authOptional は保存済みトークンがあれば付与する。
	authOptional
	// authRequired はユーザートークンを必須とする。無ければリクエストせずに失敗する。
	authRequired
	// authAdmin は管理者トークンを必須とする。
	authAdmin
)

// doRequest はJSONリクエストを送信し、レスポンスをresultにデコードする。
func (c *Client) doRequest(ctx context.Context, method, path string, mode authMode, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(c.httpClient, req, mode)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, result)
}

// newRequest はベースURLにパスを連結したリクエストを生成する。
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return req, nil
}

// resolve はパスを絶対URLにする。クエリ文字列を含む場合はそのまま連結する。
func (c *Client) resolve(path string) string {
	if strings.Contains(path, "?") {
		return c.baseURL + path
	}
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return c.baseURL + path
	}
	return u
}

// send は認証ヘッダーの付与とレート制限を行ってリクエストを送信する。
// 必須トークンが無い場合はリクエストを送らずにエラーを返す。
func (c *Client) send(hc *http.Client, req *http.Request, mode authMode) (*http.Response, error) {
	ctx := req.Context()

	// 1. 認証ヘッダー
	if err := c.authorize(ctx, req, mode); err != nil {
		return nil, err
	}

	// 2. レート制限
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	// 3. 共通ヘッダー
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	// 4. 送信
	start := time.Now()
	resp, err := hc.Do(req)
	c.metrics.RecordAPILatency(time.Since(start))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Error("api request failed: cannot reach backend",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.String("error", err.Error()),
		)
		return nil, &TransportError{BaseURL: c.baseURL, Err: err}
	}
	c.metrics.RecordAPIStatus(resp.StatusCode)

	return resp, nil
}

// authorize はモードに応じてBearerトークンを設定する。
func (c *Client) authorize(ctx context.Context, req *http.Request, mode authMode) error {
	var read func(context.Context) (string, error)
	switch mode {
	case authNone:
		return nil
	case authOptional, authRequired:
		if c.tokens != nil {
			read = c.tokens.Token
		}
	case authAdmin:
		if c.tokens != nil {
			read = c.tokens.AdminToken
		}
	}

	src := &storeTokenSource{ctx: ctx, read: read}
	tok, err := src.Token()
	if err != nil {
		if mode == authOptional && isLoginRequired(err) {
			return nil
		}
		return err
	}
	tok.SetAuthHeader(req)
	return nil
}

// decodeResponse はレスポンスボディを読み取り、エラーレスポンスであれば*Errorに変換する。
func decodeResponse(resp *http.Response, result any) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp.StatusCode, body)
	}

	if result != nil && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// get はGETリクエストを送信する。
func (c *Client) get(ctx context.Context, path string, mode authMode, result any) error {
	return c.doRequest(ctx, http.MethodGet, path, mode, nil, result)
}

// post はPOSTリクエストを送信する。
func (c *Client) post(ctx context.Context, path string, mode authMode, body, result any) error {
	return c.doRequest(ctx, http.MethodPost, path, mode, body, result)
}

// put はPUTリクエストを送信する。
func (c *Client) put(ctx context.Context, path string, mode authMode, body, result any) error {
	return c.doRequest(ctx, http.MethodPut, path, mode, body, result)
}

// patch はPATCHリクエストを送信する。
func (c *Client) patch(ctx context.Context, path string, mode authMode, body, result any) error {
	return c.doRequest(ctx, http.MethodPatch, path, mode, body, result)
}

// delete はDELETEリクエストを送信する。
func (c *Client) delete(ctx context.Context, path string, mode authMode, result any) error {
	return c.doRequest(ctx, http.MethodDelete, path, mode, nil, result)
}

// withQuery はパスに空でないクエリパラメータを付与する。
func withQuery(path string, params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// escape はパスセグメントをエスケープする。
func escape(segment string) string {
	return url.PathEscape(segment)
}

// validateRequest はリクエストのstructタグを検証する。
func (c *Client) validateRequest(req any) error {
	err := c.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate request: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed on '%s'", fe.Field(), fe.Tag()))
	}
	return model.NewValidationError(strings.Join(msgs, ", "))
}

// Pagination はページ指定付きの一覧取得パラメータ。
type Pagination struct {
	Page   int
	Limit  int
	Search string
}

func (p Pagination) params() map[string]string {
	m := map[string]string{"search": p.Search}
	if p.Page > 0 {
		m["page"] = fmt.Sprint(p.Page)
	}
	if p.Limit > 0 {
		m["limit"] = fmt.Sprint(p.Limit)
	}
	return m
}
