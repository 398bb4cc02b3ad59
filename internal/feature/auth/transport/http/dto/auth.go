// Package dto はauthフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

import (
	"time"

	"task_backend/internal/feature/auth/domain/entity"
)

// Credentials はメールアドレスとパスワードの組です。
// 形式のチェックはユースケース側で行い、ここでは受け取るだけです。
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CredentialsReq は/auth/registerと/auth/loginのリクエストボディです。
// {"user":{"email":...,"password":...}} の形で受け取ります。
type CredentialsReq struct {
	User *Credentials `json:"user" binding:"required"`
}

// UserRes is the public view of a user.
type UserRes struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginUserRes is the user view returned by login.
type LoginUserRes struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

// RegisterRes is the 201 body of /auth/register.
type RegisterRes struct {
	User  UserRes `json:"user"`
	Token string  `json:"token"`
}

// LoginRes is the 200 body of /auth/login.
type LoginRes struct {
	User  LoginUserRes `json:"user"`
	Token string       `json:"token"`
}

// MeRes is the body of GET /me.
type MeRes struct {
	User UserRes `json:"user"`
}

// NewUserRes converts an entity into its public view.
func NewUserRes(u *entity.User) UserRes {
	return UserRes{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}
