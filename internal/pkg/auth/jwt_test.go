package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/yigit/classjournal/internal/pkg/apperrors"
)

func newTestService(exp time.Duration) *JWTService {
	return NewJWTService(JWTConfig{SecretKey: "test-secret", AccessTokenExp: exp, TokenIssuer: "classjournal"})
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestService(time.Hour)

	token, expiresAt, err := svc.GenerateToken(42, "teacher1", "teacher")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expiry in the past: %v", expiresAt)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 42 || claims.Role != "teacher" || claims.Username != "teacher1" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestValidateToken_Errors(t *testing.T) {
	svc := newTestService(time.Hour)

	expired, _, err := newTestService(-time.Minute).GenerateToken(1, "s", "student")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := svc.ValidateToken(expired); !errors.Is(err, apperrors.ErrTokenExpired) {
		t.Errorf("expired token: got %v", err)
	}

	other, _, _ := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "classjournal"}).GenerateToken(1, "s", "student")
	if _, err := svc.ValidateToken(other); !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("foreign signature: got %v", err)
	}

	if _, err := svc.ValidateToken(""); !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("empty token: got %v", err)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc.def.ghi": "abc.def.ghi",
		"bearer abc":         "abc",
		"abc.def.ghi":        "abc.def.ghi",
	}
	for in, want := range tests {
		got, err := ExtractBearerToken(in)
		if err != nil || got != want {
			t.Errorf("ExtractBearerToken(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ExtractBearerToken("  "); err == nil {
		t.Error("blank header must fail")
	}
}
