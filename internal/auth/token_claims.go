package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry はJWT形式のトークンからexpクレームを取り出す。
// 署名は検証しない（検証はバックエンドの責務）。JWTでない、またはexpがない場合はokがfalse。
func TokenExpiry(token string) (exp time.Time, ok bool) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// TokenExpired はトークンが期限切れであることがローカルで判定できる場合にtrueを返す。
// 不透明トークンやexpのないJWTは常にfalse（判定はバックエンドに委ねる）。
func TokenExpired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	if !ok {
		return false
	}
	return !now.Before(exp)
}
