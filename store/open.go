package store

import (
	"fmt"
	"net/http/cookiejar"
	"net/url"

	"github.com/Sadraka/maherkar-sub001/internal/config"
	"github.com/redis/go-redis/v9"
)

// Open builds the store selected by cfg. The returned close function
// releases any connections the store holds.
func Open(cfg config.StoreConfig) (Store, func() error, error) {
	switch cfg.GetStoreBackend() {
	case config.StoreBackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.GetRedisAddr()})
		return NewRedisStore(client, cfg.GetRedisPrefix()), client.Close, nil
	default:
		site, err := url.Parse(cfg.GetCookieSiteURL())
		if err != nil {
			return nil, nil, fmt.Errorf("parse cookie site url: %w", err)
		}
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, nil, fmt.Errorf("create cookie jar: %w", err)
		}
		return NewCookieStore(jar, site), func() error { return nil }, nil
	}
}
