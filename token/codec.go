// Package token decodes backend-issued JWTs and manages the access/refresh
// token pair held in the client store.
package token

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields the client reads out of an access token payload.
// The signature is never checked; the backend is the authority.
type Claims struct {
	Subject   string    `json:"sub"`
	Exp       int64     `json:"exp"` // seconds since epoch
	ExpiresAt time.Time `json:"-"`
	TokenType string    `json:"token_type,omitempty"`
	JTI       string    `json:"jti,omitempty"`
}

// Expired reports whether the token has expired at now.
func (c *Claims) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Decode reads the payload of a compact JWT without verifying it.
// It returns nil for anything that isn't three dot separated segments with a
// JSON payload carrying an integer exp and a subject (sub or user_id).
func Decode(raw string) *Claims {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Count(raw, ".") != 2 {
		return nil
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}

	exp, ok := integerClaim(mc["exp"])
	if !ok {
		return nil
	}
	subject := stringClaim(mc["sub"])
	if subject == "" {
		subject = stringClaim(mc["user_id"])
	}
	if subject == "" {
		return nil
	}

	tokenType, _ := mc["token_type"].(string)
	jti, _ := mc["jti"].(string)
	return &Claims{
		Subject:   subject,
		Exp:       exp,
		ExpiresAt: time.Unix(exp, 0),
		TokenType: tokenType,
		JTI:       jti,
	}
}

func integerClaim(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// SimpleJWT puts a numeric user_id in the payload; sub is a string when present.
func stringClaim(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		if s == math.Trunc(s) {
			return strconv.FormatInt(int64(s), 10)
		}
	case json.Number:
		return s.String()
	}
	return ""
}
