// Package repository はクライアント状態の永続化（キーバリューストア）を提供する。
package repository

import "context"

// 永続化キー。ブラウザ版クライアントのlocalStorageキーと同じ名前を使う。
const (
	KeyAuthToken       = "auth_token"
	KeyUserData        = "user_data"
	KeyLockedGoogleID  = "locked_google_id"
	KeyLockedEmail     = "locked_email"
	KeyActiveChannel   = "active_channel"
	KeyAuthRedirectURL = "auth_redirect_url"
	KeyAdminToken      = "admin_token"
)

// KeyValueStore は文字列キーと文字列値を永続化するストアのインターフェース。
// 実装はゴルーチンセーフでなければならない。
type KeyValueStore interface {
	// Get は指定キーの値を取得する。キーが存在しない場合はokがfalseになる。
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set は指定キーに値を書き込む。既存の値は上書きされる。
	Set(ctx context.Context, key, value string) error

	// Delete は指定されたキーをまとめて削除する。
	// 存在しないキーは無視する。1回の呼び出しは1つの論理操作として扱う。
	Delete(ctx context.Context, keys ...string) error
}
