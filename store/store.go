// Package store persists the session secrets (access and refresh token) in a
// key-value medium that enforces expiry on its own.
package store

import "time"

// Cookie names shared with the web client and the route guard.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// DefaultTTLDays is the storage ceiling applied to both tokens on every
// (re)issuance. It is not the token's validity, which is governed by exp.
const DefaultTTLDays = 30

// Store is a string key-value store. Values are stored unencrypted and
// become unreadable once ttlDays have elapsed. A ttlDays <= 0 stores a
// session-lifetime entry.
type Store interface {
	Set(name, value string, ttlDays int)
	Get(name string) (string, bool)
	Delete(name string)
}

func ttl(ttlDays int) time.Duration {
	if ttlDays <= 0 {
		return 0
	}
	return time.Duration(ttlDays) * 24 * time.Hour
}
