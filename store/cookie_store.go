package store

import (
	"net/http"
	"net/url"
	"time"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// CookieStore keeps values as cookies in an http.CookieJar scoped to a site
// URL. The jar drops expired cookies, so expiry is enforced by the jar.
//
// A CookieStore without a jar behaves as if there were no browser: writes
// are dropped and reads report absent.
type CookieStore struct {
	jar  http.CookieJar
	site *url.URL
}

var _ Store = (*CookieStore)(nil)

func NewCookieStore(jar http.CookieJar, site *url.URL) *CookieStore {
	return &CookieStore{jar: jar, site: site}
}

func (s *CookieStore) available() bool {
	return s != nil && s.jar != nil && s.site != nil
}

func (s *CookieStore) Set(name, value string, ttlDays int) {
	if !s.available() {
		return
	}
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
	}
	if d := ttl(ttlDays); d > 0 {
		c.Expires = NowTimeFunc().Add(d)
	}
	s.jar.SetCookies(s.site, []*http.Cookie{c})
}

func (s *CookieStore) Get(name string) (string, bool) {
	if !s.available() {
		return "", false
	}
	for _, c := range s.jar.Cookies(s.site) {
		if c.Name == name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

func (s *CookieStore) Delete(name string) {
	if !s.available() {
		return
	}
	s.jar.SetCookies(s.site, []*http.Cookie{{
		Name:   name,
		Path:   "/",
		MaxAge: -1,
	}})
}
