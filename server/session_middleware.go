package server

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/Sadraka/maherkar-sub001/store"
	"github.com/rs/zerolog/log"
)

type guardConfig struct {
	loginPath string
	homePath  string
}

type GuardOption func(*guardConfig)

// WithLoginPath sets where anonymous visitors of protected pages are sent.
func WithLoginPath(path string) GuardOption {
	return func(c *guardConfig) {
		if path != "" {
			c.loginPath = path
		}
	}
}

// RequireSession routes page requests by the presence of the access token
// cookie. Its value is not validated; pages load the profile themselves.
//
// A path starting with any of protected, requested without the cookie, is
// redirected to the login page with the path in the redirect parameter. A
// path equal to one of authOnly, requested with the cookie, is redirected to
// the home page.
func RequireSession(protected, authOnly []string, options ...GuardOption) func(http.HandlerFunc) http.HandlerFunc {
	cfg := guardConfig{loginPath: "/login", homePath: "/"}
	for _, opt := range options {
		opt(&cfg)
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			signedIn := hasAccessToken(r)

			if !signedIn && matchesPrefix(path, protected) {
				target := cfg.loginPath + "?" + url.Values{"redirect": {path}}.Encode()
				log.Debug().Str("path", path).Msg("protected page without session, redirecting to login")
				http.Redirect(w, r, target, http.StatusTemporaryRedirect)
				return
			}
			if signedIn && slices.Contains(authOnly, path) {
				log.Debug().Str("path", path).Msg("signed in, redirecting away from auth page")
				http.Redirect(w, r, cfg.homePath, http.StatusTemporaryRedirect)
				return
			}
			next(w, r)
		}
	}
}

func hasAccessToken(r *http.Request) bool {
	c, err := r.Cookie(store.AccessTokenKey)
	return err == nil && c.Value != ""
}

func matchesPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
