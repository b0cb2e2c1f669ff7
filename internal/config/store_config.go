package config

type StoreConfig interface {
	GetStoreBackend() string
	GetCookieSiteURL() string
	GetCookieExpireDays() int
	GetRedisAddr() string
	GetRedisPrefix() string
}

const (
	StoreBackendCookie = "cookie"
	StoreBackendRedis  = "redis"
)

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreBackend() string {
	switch backend := GetEnv("STORE_BACKEND", StoreBackendCookie); backend {
	case StoreBackendRedis:
		return backend
	default:
		return StoreBackendCookie
	}
}

// GetCookieSiteURL is the origin the cookie jar scopes the token cookies to.
func (Store) GetCookieSiteURL() string {
	return GetEnv("COOKIE_SITE_URL", "http://localhost:3000")
}

// GetCookieExpireDays is the storage ceiling for both token cookies. It is
// applied on every (re)issuance regardless of the token's own exp claim.
func (Store) GetCookieExpireDays() int {
	days := GetEnvInt("COOKIE_EXPIRE_DAYS", 30)
	if days <= 0 {
		return 30
	}
	return days
}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "maherkar:session")
}
