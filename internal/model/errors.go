package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, transport, validation, channel, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeTransport          = "TRANSPORT_FAILURE"
	ErrCodeAuthRejected       = "AUTH_REJECTED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeAccountMismatch    = "ACCOUNT_MISMATCH"
	ErrCodeLoginRequired      = "LOGIN_REQUIRED"
	ErrCodeMalformedAuthData  = "MALFORMED_AUTH_DATA"
	ErrCodeOAuthFailed        = "OAUTH_FAILED"
	ErrCodeChannelNotFound    = "CHANNEL_NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_FAILED"
)

// AccountMismatchMessage はロック中に別アカウントでログインしようとした際の警告文。
const AccountMismatchMessage = "You are trying to login with a different account. Please logout first."

// NewTransportError はバックエンドに到達できない場合のエラーを生成する。
// 認証拒否とは区別して扱う。
func NewTransportError(baseURL string) *APIError {
	return &APIError{
		Code:     ErrCodeTransport,
		Message:  fmt.Sprintf("Cannot connect to server. Make sure the backend is running on %s", baseURL),
		Category: "transport",
		Action:   "バックエンドが起動しているか、API_BASE_URL が正しいか確認してください。",
	}
}

// NewAuthRejectedError はトークンがバックエンドに拒否された場合のエラーを生成する。
func NewAuthRejectedError(status int) *APIError {
	return &APIError{
		Code:     ErrCodeAuthRejected,
		Message:  fmt.Sprintf("Invalid session (HTTP %d)", status),
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidCredentialsError はメールアドレスまたはパスワードが誤っている場合のエラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password",
		Category: "auth",
		Action:   "メールアドレスとパスワードを確認してください。",
	}
}

// NewAccountMismatchError はアカウントロックに一致しないログインを拒否した場合のエラーを生成する。
func NewAccountMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountMismatch,
		Message:  AccountMismatchMessage,
		Category: "auth",
		Action:   "現在のアカウントからログアウトしてから再度ログインしてください。",
	}
}

// NewLoginRequiredError は認証が必要な操作を未ログインで実行した場合のエラーを生成する。
func NewLoginRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginRequired,
		Message:  "You must be logged in to perform this action",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewMalformedAuthDataError はOAuthコールバック等の認証データを解析できない場合のエラーを生成する。
func NewMalformedAuthDataError() *APIError {
	return &APIError{
		Code:     ErrCodeMalformedAuthData,
		Message:  "Failed to parse authentication data",
		Category: "auth",
		Action:   "もう一度ログインをやり直してください。",
	}
}

// NewOAuthFailedError はバックエンドがOAuthコールバックで失敗を通知した場合のエラーを生成する。
// messageにはバックエンドが返した理由をそのまま使う。
func NewOAuthFailedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeOAuthFailed,
		Message:  message,
		Category: "auth",
		Action:   "もう一度Googleでログインしてください。",
	}
}

// NewChannelNotFoundError は指定されたチャンネルが自分のチャンネル一覧に存在しない場合のエラーを生成する。
func NewChannelNotFoundError(channelID string) *APIError {
	return &APIError{
		Code:     ErrCodeChannelNotFound,
		Message:  fmt.Sprintf("Channel not found: %s", channelID),
		Category: "channel",
		Action:   "チャンネル一覧を更新してからIDを確認してください。",
	}
}

// NewValidationError はリクエスト内容の検証に失敗した場合のエラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}
