package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/nebulastream/internal/model"
)

// Error はバックエンドが返したエラーレスポンスを表す。
type Error struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int `json:"-"`
	// Code はエラーコード（例: "Unauthorized"）。
	Code string `json:"code"`
	// Message はバックエンドのメッセージ。
	Message string `json:"message"`
	// Details は追加情報。
	Details map[string]any `json:"details,omitempty"`
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	return e.Message
}

// IsNotFound は404相当のエラーかどうかを返す。
func (e *Error) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized は認証エラーかどうかを返す。
func (e *Error) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsForbidden は権限エラーかどうかを返す。
func (e *Error) IsForbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

// IsValidationError はリクエスト内容のエラーかどうかを返す。
func (e *Error) IsValidationError() bool {
	return e.StatusCode == http.StatusBadRequest
}

// TransportError はバックエンドに到達できなかったことを表す。認証拒否とは区別される。
type TransportError struct {
	BaseURL string
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *TransportError) Error() string {
	return fmt.Sprintf("Cannot connect to server. Make sure the backend is running on %s", e.BaseURL)
}

// Unwrap は元のネットワークエラーを返す。
func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError はUI表示用のエラー形式に変換する。
func (e *TransportError) APIError() *model.APIError {
	return model.NewTransportError(e.BaseURL)
}

// parseError はエラーレスポンスを解析する。
// {"error":{"code","message"}}、{"message","error"}（messageは文字列または配列）、
// それ以外の順に試す。
func parseError(statusCode int, body []byte) error {
	var nested struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details,omitempty"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		return &Error{
			StatusCode: statusCode,
			Code:       nested.Error.Code,
			Message:    nested.Error.Message,
			Details:    nested.Error.Details,
		}
	}

	var flat struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &flat); err == nil {
		if msg := decodeMessage(flat.Message); msg != "" {
			return &Error{StatusCode: statusCode, Code: flat.Error, Message: msg}
		}
	}

	return &Error{
		StatusCode: statusCode,
		Code:       http.StatusText(statusCode),
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode)),
	}
}

// decodeMessage は文字列または文字列配列のメッセージを1つの文字列にする。
func decodeMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return ""
}

// IsAPIError はerrがバックエンドのエラーレスポンスであればそれを返す。
func IsAPIError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsTransportError はerrがバックエンド到達不能を表すかを返す。
func IsTransportError(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeTransport
}

// IsUnauthorized はerrが401レスポンスまたはログイン必須エラーかを返す。
func IsUnauthorized(err error) bool {
	if apiErr, ok := IsAPIError(err); ok {
		return apiErr.IsUnauthorized()
	}
	return isLoginRequired(err)
}

// IsNotFound はerrが404レスポンスかを返す。
func IsNotFound(err error) bool {
	apiErr, ok := IsAPIError(err)
	return ok && apiErr.IsNotFound()
}
