// Package tokentest issues throwaway JWTs for tests.
package tokentest

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const signingKey = "test-signing-key"

// Issue returns an HS256 access token for subject expiring at exp.
func Issue(t testing.TB, subject string, exp time.Time) string {
	t.Helper()
	return IssueClaims(t, jwt.MapClaims{
		"token_type": "access",
		"exp":        exp.Unix(),
		"jti":        uuid.NewString(),
		"user_id":    subject,
	})
}

// IssueClaims signs arbitrary claims.
func IssueClaims(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}
