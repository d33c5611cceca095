package model

import "time"

// Role はトークンに埋め込まれたロールクレームを表す。
// クライアントが直接設定することはなく、常にトークンから導出される。
type Role string

// RoleAdmin は管理者ロール。これ以外の値はすべて一般ロールとして扱う。
const RoleAdmin Role = "admin"

// IsAdmin は管理者ロールかどうかを返す。
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Credentials はログインフォームの入力値を表す。
// ログイン試行ごとに生成され、送信後は破棄される。
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse はバックエンドの認証APIのレスポンス。
type AuthResponse struct {
	Token string `json:"token"`
}

// Session は永続化されるログインセッションを表す。
type Session struct {
	ID        string
	Token     string
	Role      Role
	ExpiresAt time.Time
	CreatedAt time.Time
}
