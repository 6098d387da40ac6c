package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.GenerateAccessToken("user-1", "troutwhisperer")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Handle != "troutwhisperer" {
		t.Errorf("handle = %q, want troutwhisperer", claims.Handle)
	}
	if claims.Type != TokenTypeAccess {
		t.Errorf("typ = %q, want %q", claims.Type, TokenTypeAccess)
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.GenerateRefreshToken("user-1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Type != TokenTypeRefresh {
		t.Errorf("typ = %q, want %q", claims.Type, TokenTypeRefresh)
	}
}

func TestGenerateEmptyUserID(t *testing.T) {
	svc := NewJWTService("test-secret")
	if _, err := svc.GenerateAccessToken("", "h"); !errors.Is(err, ErrEmptyUserID) {
		t.Errorf("err = %v, want ErrEmptyUserID", err)
	}
	if _, err := svc.GenerateRefreshToken(""); !errors.Is(err, ErrEmptyUserID) {
		t.Errorf("err = %v, want ErrEmptyUserID", err)
	}
}

func TestValidateWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a").GenerateAccessToken("user-1", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if _, err := NewJWTService("secret-b").ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	secret := "test-secret"
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
		Type: TokenTypeAccess,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewJWTService(secret).ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("err = %v, want ErrExpiredToken", err)
	}
}

func TestValidateRejectsWrongAlgorithm(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Type: TokenTypeAccess,
	}
	// alg=none must never validate.
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewJWTService("test-secret").ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestDualKeyRotation(t *testing.T) {
	oldSvc := NewJWTService("old-secret")
	oldToken, err := oldSvc.GenerateAccessToken("user-1", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	rotated := NewJWTServiceWithRotation("new-secret", "old-secret")

	// Tokens signed with the previous secret still validate during rotation.
	if _, err := rotated.ValidateToken(oldToken); err != nil {
		t.Errorf("old token rejected during rotation: %v", err)
	}

	// New tokens are signed with the current secret.
	newToken, err := rotated.GenerateAccessToken("user-2", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if _, err := NewJWTService("new-secret").ValidateToken(newToken); err != nil {
		t.Errorf("new token not signed with current secret: %v", err)
	}

	// Once rotation completes the old secret stops working.
	done := NewJWTServiceWithRotation("new-secret", "")
	if _, err := done.ValidateToken(oldToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("old token still valid after rotation: %v", err)
	}
}
