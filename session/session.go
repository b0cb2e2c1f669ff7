// Package session ties the token store, the profile cache and the OTP flows
// into the object the UI talks to.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Sadraka/maherkar-sub001/api"
	"github.com/Sadraka/maherkar-sub001/broadcast"
	"github.com/Sadraka/maherkar-sub001/internal/config"
	apperrors "github.com/Sadraka/maherkar-sub001/internal/errors"
	"github.com/Sadraka/maherkar-sub001/otp"
	"github.com/Sadraka/maherkar-sub001/profile"
	"github.com/Sadraka/maherkar-sub001/store"
	"github.com/Sadraka/maherkar-sub001/token"
	"github.com/Sadraka/maherkar-sub001/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// State is the snapshot the UI renders from.
type State struct {
	User          *users.Profile
	Authenticated bool
	Loading       bool
}

type Session struct {
	client *api.Client
	authed *api.Client
	tokens *token.Manager
	cache  *profile.Cache
	guard  *profile.Guard
	events *broadcast.Registry
	engine *otp.Engine
	group  singleflight.Group

	nowFunc           func() time.Time
	ttlDays           int
	profileTTL        time.Duration
	horizon           time.Duration
	fetchTimeout      time.Duration
	fetchSpacing      time.Duration
	refreshAllSpacing time.Duration
	keepalive         time.Duration
	notifier          otp.Notifier

	lock  sync.RWMutex
	state State
}

type Option func(*Session)

func WithNowFunc(now func() time.Time) Option {
	return func(s *Session) {
		s.nowFunc = now
	}
}

// WithSessionConfig applies the cache, refresh and throttling timings.
func WithSessionConfig(cfg config.SessionConfig) Option {
	return func(s *Session) {
		s.profileTTL = cfg.GetProfileTTL()
		s.horizon = cfg.GetRefreshHorizon()
		s.fetchSpacing = cfg.GetFetchSpacing()
		s.refreshAllSpacing = cfg.GetRefreshAllSpacing()
		s.keepalive = cfg.GetKeepaliveInterval()
	}
}

// WithFetchTimeout bounds identity fetches and token refreshes.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(s *Session) {
		if timeout > 0 {
			s.fetchTimeout = timeout
		}
	}
}

func WithTTLDays(days int) Option {
	return func(s *Session) {
		s.ttlDays = days
	}
}

func WithNotifier(n otp.Notifier) Option {
	return func(s *Session) {
		s.notifier = n
	}
}

// WithRegistry shares an existing broadcast registry.
func WithRegistry(r *broadcast.Registry) Option {
	return func(s *Session) {
		if r != nil {
			s.events = r
		}
	}
}

// New builds a session on top of s, talking to the backend through client.
func New(s store.Store, client *api.Client, options ...Option) *Session {
	sess := &Session{
		client:            client,
		events:            broadcast.NewRegistry(),
		nowFunc:           time.Now,
		ttlDays:           store.DefaultTTLDays,
		profileTTL:        profile.DefaultTTL,
		horizon:           2 * time.Hour,
		fetchTimeout:      15 * time.Second,
		fetchSpacing:      2 * time.Second,
		refreshAllSpacing: 5 * time.Second,
		keepalive:         15 * time.Minute,
		notifier:          otp.NopNotifier{},
	}
	for _, opt := range options {
		opt(sess)
	}

	sess.cache = profile.NewCache(profile.WithTTL(sess.profileTTL), profile.WithNowFunc(sess.nowFunc))
	sess.guard = profile.NewGuard(sess.nowFunc)
	sess.tokens = token.NewManager(s, client,
		token.WithNowFunc(sess.nowFunc),
		token.WithTTLDays(sess.ttlDays),
		token.WithRefreshHorizon(sess.horizon),
		token.WithRequestTimeout(sess.fetchTimeout),
		token.WithRevokedHook(func() { sess.teardown("refresh token rejected") }),
	)
	sess.authed = client.With(api.WithHTTPClient(sess.tokens.Client(client.HTTPClient())))
	sess.engine = otp.NewEngine(client, sess.tokens, identity{sess},
		otp.WithNotifier(sess.notifier),
		otp.WithLocalizer(client.Localizer()),
		otp.WithNowFunc(sess.nowFunc),
	)
	return sess
}

// NewFromConfig builds the API client and session from cfg.
func NewFromConfig(cfg config.Config, s store.Store, options ...Option) *Session {
	base := []Option{
		WithSessionConfig(cfg),
		WithFetchTimeout(cfg.GetRequestTimeout()),
		WithTTLDays(cfg.GetCookieExpireDays()),
		WithNotifier(otp.NotifierFromConfig(cfg)),
	}
	return New(s, api.NewClientFromConfig(cfg), append(base, options...)...)
}

func (s *Session) Tokens() *token.Manager {
	return s.tokens
}

// IsAuthenticated reports whether the store holds a usable access token.
func (s *Session) IsAuthenticated() bool {
	return s.tokens.IsAuthenticated()
}

func (s *Session) State() State {
	s.lock.RLock()
	defer s.lock.RUnlock()
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

func (s *Session) setUser(p *users.Profile) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if p == nil {
		s.state.User = nil
		s.state.Authenticated = false
		return
	}
	u := *p
	s.state.User = &u
	s.state.Authenticated = true
}

func (s *Session) setLoading(loading bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state.Loading = loading
}

// Subscribe registers h for session events. Handlers run synchronously on
// the goroutine that ended the session and must not load user data.
func (s *Session) Subscribe(h broadcast.Handler) *broadcast.Subscription {
	return s.events.Subscribe(h)
}

// GetUserData returns the signed-in profile, from the cache while it is
// fresh. It returns nil without error when there is no session to load.
//
// A 401 from the identity endpoint triggers one refresh and retry; if that
// retry fails the session is torn down. Concurrent callers share one fetch,
// which runs detached from the callers' cancellation under the fetch timeout.
func (s *Session) GetUserData(ctx context.Context) (*users.Profile, error) {
	if p, ok := s.cache.Get(); ok {
		return p, nil
	}

	v, err, shared := s.group.Do("identity", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.loadIdentity(fetchCtx)
	})
	if shared {
		log.Debug().Msg("joined in-flight identity fetch")
	}
	if err != nil {
		return nil, err
	}
	p, _ := v.(*users.Profile)
	if p == nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *Session) loadIdentity(ctx context.Context) (*users.Profile, error) {
	if p, ok := s.cache.Get(); ok {
		return p, nil
	}
	gen := s.cache.Generation()

	access, ok := s.tokens.AccessToken()
	if !ok {
		if _, ok := s.tokens.RefreshToken(); !ok {
			return nil, nil
		}
		refreshed, err := s.tokens.RefreshAccessToken(ctx)
		if err != nil {
			if apperrors.IsAuthRejected(err) {
				return nil, nil
			}
			return nil, err
		}
		if refreshed == "" {
			return nil, nil
		}
		access = refreshed
	}

	p, err := s.client.FetchIdentity(ctx, access)
	if apperrors.Is(err, apperrors.ErrUnauthorized) {
		log.Debug().Msg("identity rejected the access token, refreshing once")
		refreshed, rerr := s.tokens.RefreshAccessToken(ctx)
		switch {
		case apperrors.IsAuthRejected(rerr):
			return nil, nil
		case rerr != nil:
			return nil, rerr
		case refreshed == "":
			s.teardown("access token rejected without a refresh token")
			return nil, nil
		}
		p, err = s.client.FetchIdentity(ctx, refreshed)
		if err != nil {
			log.Warn().Err(err).Msg("identity retry failed")
			s.teardown("identity retry failed")
			return nil, nil
		}
	}
	if err != nil {
		return nil, err
	}

	if !s.cache.PutIf(gen, p) {
		log.Debug().Msg("session ended during identity fetch, dropping profile")
		return nil, nil
	}
	return p, nil
}

// FetchUserData is the opportunistic load run at start-up and by Keepalive.
// It is skipped while another load runs or within the fetch spacing of the
// last one.
func (s *Session) FetchUserData(ctx context.Context) {
	s.load(ctx, s.fetchSpacing, false)
}

// RefreshUserData drops the cached profile and loads it again. It is skipped
// within the refresh-all spacing of the last load.
func (s *Session) RefreshUserData(ctx context.Context) {
	s.load(ctx, s.refreshAllSpacing, true)
}

func (s *Session) load(ctx context.Context, spacing time.Duration, explicit bool) {
	if !s.guard.TryAcquire(spacing) {
		log.Debug().Bool("explicit", explicit).Msg("user data load suppressed")
		return
	}
	defer s.guard.Release()

	s.setLoading(true)
	defer s.setLoading(false)

	if !s.hasTokens() {
		s.setUser(nil)
		return
	}

	valid := s.tokens.ValidateAndRefreshIfNeeded(ctx)
	if explicit {
		if !valid {
			s.endSession()
			return
		}
		s.cache.Clear()
	}

	p, err := s.GetUserData(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not load user data, keeping session")
		return
	}
	if p == nil {
		s.endSession()
		return
	}
	s.setUser(p)
}

func (s *Session) hasTokens() bool {
	_, hasAccess := s.tokens.AccessToken()
	_, hasRefresh := s.tokens.RefreshToken()
	return hasAccess || hasRefresh
}

// endSession logs out if tokens are still stored. Otherwise the teardown
// already ran and only the local state is reset.
func (s *Session) endSession() {
	if s.hasTokens() {
		s.Logout()
		return
	}
	s.setUser(nil)
}

// UpdateUserType switches the signed-in user between employer and job seeker.
func (s *Session) UpdateUserType(ctx context.Context, rawType string) (*users.Profile, error) {
	loc := s.client.Localizer()
	raw := strings.ToUpper(strings.TrimSpace(rawType))
	if !users.ValidRawUserType(raw) {
		return nil, loc.Error(api.ClassValidation, apperrors.ErrInvalidUserType)
	}

	current := s.State().User
	if current == nil {
		p, err := s.GetUserData(ctx)
		if err != nil {
			return nil, err
		}
		current = p
	}
	if current == nil || !s.tokens.ValidateAndRefreshIfNeeded(ctx) {
		return nil, loc.Error(api.ClassStatus, apperrors.ErrNotAuthenticated)
	}

	updated, err := s.authed.UpdateUserType(ctx, current.Username, raw)
	if err != nil {
		return nil, apperrors.Wrapf(err, "update user type")
	}
	s.cache.Put(updated)
	s.setUser(updated)
	return updated, nil
}

// Logout deletes both tokens, clears the cache and tells every subscriber.
func (s *Session) Logout() {
	s.teardown("logout")
}

func (s *Session) teardown(reason string) {
	s.tokens.Clear()
	s.cache.Clear()
	s.setUser(nil)
	log.Info().Str("reason", reason).Msg("session ended")
	s.events.Publish(broadcast.Logout)
}

// Keepalive loads the user data now and then every interval until ctx is
// done. A non-positive interval uses the configured keepalive interval.
func (s *Session) Keepalive(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.keepalive
	}
	s.FetchUserData(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.FetchUserData(ctx)
		}
	}
}

// Wait blocks until background token refreshes have finished.
func (s *Session) Wait() {
	s.tokens.Wait()
}
