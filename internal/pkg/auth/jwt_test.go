package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/yigit/exampapers/internal/pkg/apperrors"
)

func newTestService() *JWTService {
	return NewJWTService(JWTConfig{SecretKey: "test-secret", TokenIssuer: "exampapers"})
}

func TestValidateAndExtractClaims(t *testing.T) {
	svc := newTestService()
	token, err := svc.GenerateToken(42, "ada@example.edu", "INSTRUCTOR", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := svc.ValidateAndExtractClaims(token)
	if err != nil {
		t.Fatalf("ValidateAndExtractClaims: %v", err)
	}
	if claims.UserID != 42 || claims.RoleType != "INSTRUCTOR" || claims.Email != "ada@example.edu" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateTokenRejections(t *testing.T) {
	svc := newTestService()

	expired, _ := svc.GenerateToken(1, "a@b.c", "STUDENT", -time.Minute)
	if _, err := svc.ValidateToken(expired); !errors.Is(err, apperrors.ErrTokenExpired) {
		t.Errorf("expired token: %v", err)
	}

	foreign, _ := NewJWTService(JWTConfig{SecretKey: "other", TokenIssuer: "exampapers"}).GenerateToken(1, "a@b.c", "STUDENT", time.Hour)
	if _, err := svc.ValidateToken(foreign); !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("wrong secret: %v", err)
	}

	otherIssuer, _ := NewJWTService(JWTConfig{SecretKey: "test-secret", TokenIssuer: "elsewhere"}).GenerateToken(1, "a@b.c", "STUDENT", time.Hour)
	if _, err := svc.ValidateToken(otherIssuer); !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("wrong issuer: %v", err)
	}

	if _, err := svc.ValidateToken("not.a.jwt"); err == nil {
		t.Errorf("garbage token accepted")
	}

	noRole, _ := svc.GenerateToken(1, "a@b.c", "", time.Hour)
	if _, err := svc.ValidateAndExtractClaims(noRole); !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("token without role: %v", err)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer aaa.bbb.ccc", "aaa.bbb.ccc", true},
		{"aaa.bbb.ccc", "aaa.bbb.ccc", true},
		{`"Bearer aaa.bbb.ccc"`, "aaa.bbb.ccc", true},
		{"", "", false},
		{"Bearer opaque", "", false},
	}
	for _, tc := range cases {
		got, err := ExtractBearerToken(tc.header)
		if (err == nil) != tc.ok || got != tc.want {
			t.Errorf("ExtractBearerToken(%q) = %q, %v", tc.header, got, err)
		}
	}
}
