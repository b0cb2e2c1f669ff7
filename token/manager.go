package token

import (
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/Sadraka/maherkar-sub001/internal/errors"
	"github.com/Sadraka/maherkar-sub001/store"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

var _ oauth2.TokenSource = (*Manager)(nil)

// Manager owns the token pair in the store. It decides when an access token
// needs replacing and tears the session down when the backend rejects the
// refresh token.
type Manager struct {
	store     store.Store
	refresher Refresher
	ttlDays   int
	horizon   time.Duration
	timeout   time.Duration
	nowFunc   func() time.Time
	onRevoked func()

	group      singleflight.Group
	background sync.WaitGroup
}

type ManagerOption func(*Manager)

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// WithRefreshHorizon sets how close to expiry a token may be before a
// background refresh is started.
func WithRefreshHorizon(horizon time.Duration) ManagerOption {
	return func(m *Manager) {
		m.horizon = horizon
	}
}

func WithRequestTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

func WithTTLDays(days int) ManagerOption {
	return func(m *Manager) {
		m.ttlDays = days
	}
}

// WithRevokedHook registers fn to run after the backend rejected the refresh
// token and both tokens were removed.
func WithRevokedHook(fn func()) ManagerOption {
	return func(m *Manager) {
		m.onRevoked = fn
	}
}

func NewManager(s store.Store, refresher Refresher, options ...ManagerOption) *Manager {
	m := &Manager{
		store:     s,
		refresher: refresher,
		ttlDays:   store.DefaultTTLDays,
		horizon:   2 * time.Hour,
		timeout:   15 * time.Second,
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *Manager) AccessToken() (string, bool) {
	return m.store.Get(store.AccessTokenKey)
}

func (m *Manager) RefreshToken() (string, bool) {
	return m.store.Get(store.RefreshTokenKey)
}

// StoreTokens writes a freshly issued pair. An empty refresh token leaves the
// stored one in place.
func (m *Manager) StoreTokens(access, refresh string) {
	if access != "" {
		m.store.Set(store.AccessTokenKey, access, m.ttlDays)
	}
	if refresh != "" {
		m.store.Set(store.RefreshTokenKey, refresh, m.ttlDays)
	}
}

// Clear deletes both tokens.
func (m *Manager) Clear() {
	m.store.Delete(store.AccessTokenKey)
	m.store.Delete(store.RefreshTokenKey)
}

// IsAuthenticated reports whether an access token is present and not known to
// be expired. It never touches the network.
func (m *Manager) IsAuthenticated() bool {
	access, ok := m.AccessToken()
	if !ok {
		return false
	}
	if claims := Decode(access); claims != nil && claims.Expired(m.nowFunc()) {
		return false
	}
	return true
}

// RefreshAccessToken obtains a new access token with the stored refresh token.
//
// Without a refresh token it returns "" and no error. A 401/403 from the
// backend clears both tokens, runs the revoked hook and returns the error.
// Any other failure leaves the stored tokens alone. Concurrent callers share
// one backend call, which runs detached from their cancellation under the
// request timeout.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, error) {
	if _, ok := m.RefreshToken(); !ok {
		return "", nil
	}
	v, err, _ := m.group.Do("refresh", func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	refreshToken, ok := m.RefreshToken()
	if !ok {
		return "", nil
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	access, err := m.refresher.RefreshToken(ctx, refreshToken)
	if err != nil {
		if apperrors.IsAuthRejected(err) {
			log.Info().Err(err).Msg("refresh token rejected, clearing session")
			m.Clear()
			if m.onRevoked != nil {
				m.onRevoked()
			}
			return "", err
		}
		log.Warn().Err(err).Msg("token refresh failed, keeping stored tokens")
		return "", err
	}
	if access == "" {
		return "", apperrors.Wrapf(apperrors.ErrMalformedResponse, "refresh response has no access token")
	}

	m.store.Set(store.AccessTokenKey, access, m.ttlDays)
	log.Debug().Msg("access token refreshed")
	return access, nil
}

// ValidateAndRefreshIfNeeded reports whether the session can be used.
//
// A missing or expired access token is refreshed before returning. A token
// inside the refresh horizon is refreshed in the background and the call
// returns true straight away. An undecodable token is reported as unusable.
func (m *Manager) ValidateAndRefreshIfNeeded(ctx context.Context) bool {
	access, ok := m.AccessToken()
	if !ok {
		refreshed, _ := m.RefreshAccessToken(ctx)
		return refreshed != ""
	}

	claims := Decode(access)
	if claims == nil {
		return false
	}

	now := m.nowFunc()
	if claims.Expired(now) {
		refreshed, _ := m.RefreshAccessToken(ctx)
		return refreshed != ""
	}

	if claims.ExpiresAt.Sub(now) < m.horizon {
		bg := context.WithoutCancel(ctx)
		m.background.Add(1)
		go func() {
			defer m.background.Done()
			if _, err := m.RefreshAccessToken(bg); err != nil {
				log.Debug().Err(err).Msg("background refresh failed")
			}
		}()
	}
	return true
}

// Wait blocks until background refreshes started by ValidateAndRefreshIfNeeded
// have finished.
func (m *Manager) Wait() {
	m.background.Wait()
}

// Token implements oauth2.TokenSource over the stored pair. It does not
// refresh; callers run ValidateAndRefreshIfNeeded first.
func (m *Manager) Token() (*oauth2.Token, error) {
	access, ok := m.AccessToken()
	if !ok {
		return nil, apperrors.ErrNotAuthenticated
	}
	t := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if refreshToken, ok := m.RefreshToken(); ok {
		t.RefreshToken = refreshToken
	}
	if claims := Decode(access); claims != nil {
		t.Expiry = claims.ExpiresAt
	}
	return t, nil
}

// Client returns an http.Client that reads the stored access token on every
// request and sends it as a bearer header. base supplies the underlying
// transport and timeout.
func (m *Manager) Client(base *http.Client) *http.Client {
	c := &http.Client{}
	var rt http.RoundTripper
	if base != nil {
		rt = base.Transport
		c.Timeout = base.Timeout
	}
	c.Transport = &oauth2.Transport{Source: m, Base: rt}
	return c
}
