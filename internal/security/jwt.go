package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/osa623/arxadmin/libs/auth"
)

// NewSessionToken signs a bearer token for the given principal. The two
// login flows deliberately use different lifetimes: password logins get a
// long-lived token, MFA logins a 12-hour one. TTL is the caller's choice.
func NewSessionToken(subject, email string, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	claims := auth.Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
