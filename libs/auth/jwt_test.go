package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signTestToken(t *testing.T, secret []byte, subject string, ttl time.Duration) string {
	t.Helper()
	claims := Claims{
		Email: "ops@firm.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestParseJWTRoundTrip(t *testing.T) {
	token := signTestToken(t, []byte("secret"), "ops@firm.test", time.Hour)

	claims, err := ParseJWT(token, []byte("secret"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "ops@firm.test" || claims.Email != "ops@firm.test" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseJWTRejectsExpired(t *testing.T) {
	token := signTestToken(t, []byte("secret"), "ops@firm.test", -time.Minute)

	_, err := ParseJWT(token, []byte("secret"))
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestParseJWTRejectsWrongSecret(t *testing.T) {
	token := signTestToken(t, []byte("secret"), "ops@firm.test", time.Hour)

	if _, err := ParseJWT(token, []byte("other")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid error, got %v", err)
	}
}

func TestParseJWTRejectsGarbage(t *testing.T) {
	if _, err := ParseJWT("not.a.token", []byte("secret")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid error, got %v", err)
	}
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
	}
	for _, tc := range cases {
		if got := ExtractBearer(tc.header); got != tc.want {
			t.Fatalf("ExtractBearer(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
