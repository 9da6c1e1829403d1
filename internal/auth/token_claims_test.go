package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signTestToken はテスト用のJWTを生成する。署名鍵は検証されないため任意。
func signTestToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "u1"}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestTokenExpiry_JWT(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := TokenExpiry(signTestToken(t, exp))
	if !ok {
		t.Fatal("TokenExpiry should find exp claim")
	}
	if !got.Equal(exp) {
		t.Errorf("TokenExpiry = %v, want %v", got, exp)
	}
}

func TestTokenExpiry_NoExpClaim(t *testing.T) {
	if _, ok := TokenExpiry(signTestToken(t, time.Time{})); ok {
		t.Error("JWT without exp should not report expiry")
	}
}

func TestTokenExpiry_OpaqueToken(t *testing.T) {
	if _, ok := TokenExpiry("opaque-session-token"); ok {
		t.Error("opaque token should not report expiry")
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	if !TokenExpired(signTestToken(t, now.Add(-time.Minute)), now) {
		t.Error("past exp should be expired")
	}
	if TokenExpired(signTestToken(t, now.Add(time.Minute)), now) {
		t.Error("future exp should not be expired")
	}
	if TokenExpired("opaque-session-token", now) {
		t.Error("opaque token should never be locally expired")
	}
}
