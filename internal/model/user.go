// Package model はドメインモデルを定義する。
package model

// Role はユーザーの権限種別を表す。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "user"
	// RoleAdmin は管理者。
	RoleAdmin Role = "admin"
)

// User はログイン中のユーザープロフィールを表す。
// user_data キーにJSONで永続化されるため、JSONタグはバックエンドのフィールド名に合わせる。
type User struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email,omitempty"`
	Avatar          string `json:"avatar,omitempty"`
	Handle          string `json:"handle,omitempty"`
	IsEmailVerified bool   `json:"isEmailVerified,omitempty"`
	GoogleID        string `json:"googleId,omitempty"`
	Role            Role   `json:"role,omitempty"`
	Subscribers     string `json:"subscribers,omitempty"`
	Description     string `json:"description,omitempty"`
	Banner          string `json:"banner,omitempty"`
}

// IsAdmin は管理者ユーザーかどうかを返す。
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Credential は永続化された認証情報（ユーザーとBearerトークンの組）を表す。
type Credential struct {
	User  *User
	Token string
}

// Lock はアカウントロック状態を表す。
// GoogleID・Emailのどちらも空の場合はロックなし（NoLock）を意味する。
// 空でないフィールドだけが照合対象になる。
type Lock struct {
	GoogleID string `json:"googleId,omitempty"`
	Email    string `json:"email,omitempty"`
}

// NoLock はロックなしの状態を返す。
func NoLock() Lock {
	return Lock{}
}

// LockedBy は指定された識別子でロックされた状態を返す。
func LockedBy(googleID, email string) Lock {
	return Lock{GoogleID: googleID, Email: email}
}

// IsSet はいずれかのロックフィールドが設定されているかを返す。
func (l Lock) IsSet() bool {
	return l.GoogleID != "" || l.Email != ""
}
