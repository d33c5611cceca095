// Package session はログインセッション（トークンとロール）の管理を提供する。
package session

import (
	"fmt"
	"time"

	"github.com/comanda/painel/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

// Claims はバックエンドが発行するトークンのクレーム。
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// DecodeToken はトークンからロールと有効期限を取り出す。
// 署名鍵はバックエンドのみが保持するため、署名は検証しない。
// expクレームがない場合、有効期限はゼロ値になる。
func DecodeToken(token string) (model.Role, time.Time, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to decode token: %w", err)
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return model.Role(claims.Role), expiresAt, nil
}
