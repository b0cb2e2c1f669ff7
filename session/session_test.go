package session_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sadraka/maherkar-sub001/api"
	"github.com/Sadraka/maherkar-sub001/broadcast"
	apperrors "github.com/Sadraka/maherkar-sub001/internal/errors"
	"github.com/Sadraka/maherkar-sub001/session"
	"github.com/Sadraka/maherkar-sub001/store"
	"github.com/Sadraka/maherkar-sub001/store/storefake"
	"github.com/Sadraka/maherkar-sub001/token/tokentest"
	"github.com/Sadraka/maherkar-sub001/users"
	"github.com/stretchr/testify/require"
)

const (
	identityRoute = "GET /users/"
	refreshRoute  = "POST /api/token/refresh/"
)

type clock struct {
	lock sync.Mutex
	t    time.Time
}

func (c *clock) now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.t = c.t.Add(d)
}

type backend struct {
	lock    sync.Mutex
	routes  map[string]http.HandlerFunc
	calls   map[string]int
	headers map[string][]string
	server  *httptest.Server
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		routes:  make(map[string]http.HandlerFunc),
		calls:   make(map[string]int),
		headers: make(map[string][]string),
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	b.lock.Lock()
	b.calls[key]++
	b.headers[key] = append(b.headers[key], r.Header.Get("Authorization"))
	route, ok := b.routes[key]
	b.lock.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	route(w, r)
}

func (b *backend) handle(route string, h http.HandlerFunc) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.routes[route] = h
}

func (b *backend) on(route string, status int, body string) {
	b.handle(route, reply(status, body))
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (b *backend) count(route string) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.calls[route]
}

func (b *backend) auth(route string) []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]string(nil), b.headers[route]...)
}

type fixture struct {
	clock   *clock
	store   *storefake.Store
	backend *backend
	session *session.Session
	logouts atomic.Int32
}

func newFixture(t *testing.T, options ...session.Option) *fixture {
	t.Helper()
	f := &fixture{
		clock:   &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		backend: newBackend(t),
	}
	f.store = storefake.NewFakeStore().WithNow(f.clock.now)
	client := api.NewClient(f.backend.server.URL, api.WithLocalizer(api.NewLocalizer(api.LocaleEn)))
	f.session = session.New(f.store, client, append([]session.Option{session.WithNowFunc(f.clock.now)}, options...)...)
	f.session.Subscribe(func(e broadcast.Event) {
		if e == broadcast.Logout {
			f.logouts.Add(1)
		}
	})
	t.Cleanup(f.session.Wait)
	return f
}

// signIn stores a token pair whose access token is valid well past the
// refresh horizon.
func (f *fixture) signIn(t *testing.T) string {
	t.Helper()
	access := tokentest.Issue(t, "7", f.clock.now().Add(5*time.Hour))
	f.store.Set(store.AccessTokenKey, access, store.DefaultTTLDays)
	f.store.Set(store.RefreshTokenKey, "refresh-1", store.DefaultTTLDays)
	return access
}

func (f *fixture) hasTokens() bool {
	_, a := f.store.Get(store.AccessTokenKey)
	_, r := f.store.Get(store.RefreshTokenKey)
	return a || r
}

const employerBody = `{"username":"ali","phone":"09120000000","user_type":"EM","full_name":"Ali"}`

func TestGetUserDataUsesCache(t *testing.T) {
	f := newFixture(t)
	access := f.signIn(t)
	f.backend.on(identityRoute, http.StatusOK, employerBody)

	first, err := f.session.GetUserData(t.Context())
	require.NoError(t, err)
	second, err := f.session.GetUserData(t.Context())
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, users.UserTypeEmployer, first.UserType)
	require.Equal(t, "EM", first.RawUserType)
	require.True(t, first.IsEmployer())
	require.Equal(t, 1, f.backend.count(identityRoute))
	require.Equal(t, []string{"Bearer " + access}, f.backend.auth(identityRoute))

	f.clock.advance(5 * time.Minute)
	_, err = f.session.GetUserData(t.Context())
	require.NoError(t, err)
	require.Equal(t, 2, f.backend.count(identityRoute))
}

func TestGetUserDataReturnsCopies(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.backend.on(identityRoute, http.StatusOK, employerBody)

	p, err := f.session.GetUserData(t.Context())
	require.NoError(t, err)
	p.Username = "changed"

	again, err := f.session.GetUserData(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ali", again.Username)
}

func TestGetUserDataSharesOneFetch(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.backend.handle(identityRoute, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		reply(http.StatusOK, employerBody)(w, r)
	})

	const callers = 8
	results := make([]*users.Profile, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = f.session.GetUserData(context.Background())
		}()
	}

	<-started
	close(release)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		require.Equal(t, "ali", results[i].Username)
	}
	require.Equal(t, 1, f.backend.count(identityRoute))
}

func TestGetUserDataDropsFetchFinishedAfterLogout(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)

	started := make(chan struct{})
	release := make(chan struct{})
	f.backend.handle(identityRoute, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-release
		reply(http.StatusOK, employerBody)(w, r)
	})

	type result struct {
		p   *users.Profile
		err error
	}
	done := make(chan result, 1)
	go func() {
		p, err := f.session.GetUserData(context.Background())
		done <- result{p, err}
	}()

	<-started
	f.session.Logout()
	close(release)

	res := <-done
	require.NoError(t, res.err)
	require.Nil(t, res.p)

	p, err := f.session.GetUserData(t.Context())
	require.NoError(t, err)
	require.Nil(t, p)
	require.False(t, f.session.State().Authenticated)
	require.Equal(t, 1, f.backend.count(identityRoute))
}

func TestGetUserDataWithoutTokens(t *testing.T) {
	f := newFixture(t)

	p, err := f.session.GetUserData(t.Context())
	require.NoError(t, err)
	require.Nil(t, p)
	require.Zero(t, f.backend.count(identityRoute))
	require.Zero(t, f.backend.count(refreshRoute))
}

func TestGetUserDataRefreshesMissingAccessToken(t *testing.T) {
	f := newFixture(t)
	f.store.Set(store.RefreshTokenKey, "refresh-1", store.DefaultTTLDays)
	f.backend.on(refreshRoute, http.StatusOK, `{"access":"fresh"}`)
	f.backend.on(identityRoute, http.StatusOK, employerBody)

	p, err := f.session.GetUserData(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ali", p.Username)
	require.Equal(t, []string{"Bearer fresh"}, f.backend.auth(identityRoute))

	access, ok := f.store.Get(store.AccessTokenKey)
	require.True(t, ok)
	require.Equal(t, "fresh", access)
	require.Equal(t, 1, f.store.Sets(store.AccessTokenKey))
	require.Equal(t, 1, f.store.Sets(store.RefreshTokenKey))
}

func TestGetUserDataRetriesAfterRefresh(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.backend.on(refreshRoute, http.StatusOK, `{"access":"fresh"}`)
	f.backend.handle(identityRoute, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh" {
			reply(http.StatusUnauthorized, `{"detail":"token not valid"}`)(w, r)
			return
		}
		reply(http.StatusOK, employerBody)(w, r)
	})

	p, err := f.session.GetUserData(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ali", p.Username)
	require.Equal(t, 2, f.backend.count(identityRoute))
	require.Equal(t, 1, f.backend.count(refreshRoute))
	require.Zero(t, f.logouts.Load())
}

func TestGetUserDataEscalation(t *testing.T) {
	t.Run("retry rejected tears down", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t)
		f.backend.on(refreshRoute, http.StatusOK, `{"access":"fresh"}`)
		f.backend.on(identityRoute, http.StatusUnauthorized, `{}`)

		p, err := f.session.GetUserData(t.Context())
		require.NoError(t, err)
		require.Nil(t, p)
		require.False(t, f.hasTokens())
		require.Equal(t, int32(1), f.logouts.Load())
		require.Equal(t, 2, f.backend.count(identityRoute))
	})

	t.Run("refresh rejected tears down", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t)
		f.backend.on(refreshRoute, http.StatusUnauthorized, `{"detail":"token is blacklisted"}`)
		f.backend.on(identityRoute, http.StatusUnauthorized, `{}`)

		p, err := f.session.GetUserData(t.Context())
		require.NoError(t, err)
		require.Nil(t, p)
		require.False(t, f.hasTokens())
		require.Equal(t, int32(1), f.logouts.Load())
		require.Equal(t, 1, f.backend.count(identityRoute))
	})

	t.Run("refresh unavailable keeps tokens", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t)
		f.backend.on(refreshRoute, http.StatusServiceUnavailable, `{}`)
		f.backend.on(identityRoute, http.StatusUnauthorized, `{}`)

		_, err := f.session.GetUserData(t.Context())
		require.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
		require.True(t, f.hasTokens())
		require.Zero(t, f.logouts.Load())
	})

	t.Run("server error keeps tokens", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t)
		f.backend.on(identityRoute, http.StatusInternalServerError, `{}`)

		_, err := f.session.GetUserData(t.Context())
		require.ErrorIs(t, err, apperrors.ErrServerError)
		require.Equal(t, "Internal server error. Please try again later.", api.UserMessage(err))
		require.True(t, f.hasTokens())
		require.Zero(t, f.backend.count(refreshRoute))
	})
}

func TestGetUserDataTimeout(t *testing.T) {
	f := newFixture(t, session.WithFetchTimeout(50*time.Millisecond))
	f.signIn(t)
	f.backend.handle(identityRoute, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})

	_, err := f.session.GetUserData(t.Context())
	require.ErrorIs(t, err, apperrors.ErrTimeout)
	require.True(t, f.hasTokens())

	f.backend.on(identityRoute, http.StatusOK, employerBody)
	p, err := f.session.GetUserData(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ali", p.Username)
}

func TestFetchUserData(t *testing.T) {
	t.Run("loads into state", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t)
		f.backend.on(identityRoute, http.StatusOK, employerBody)

		f.session.FetchUserData(t.Context())

		st := f.session.State()
		require.True(t, st.Authenticated)
		require.False(t, st.Loading)
		require.Equal(t, "ali", st.User.Username)
	})

	t.Run("no tokens resets state", func(t *testing.T) {
		f := newFixture(t)

		f.session.FetchUserData(t.Context())

		st := f.session.State()
		require.False(t, st.Authenticated)
		require.Nil(t, st.User)
		require.Zero(t, f.backend.count(identityRoute))
	})

	t.Run("errors keep the session", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t)
		f.backend.on(identityRoute, http.StatusOK, employerBody)
		f.session.FetchUserData(t.Context())

		f.clock.advance(10 * time.Minute)
		f.backend.on(identityRoute, http.StatusBadGateway, `{}`)
		f.session.FetchUserData(t.Context())

		st := f.session.State()
		require.True(t, st.Authenticated)
		require.Equal(t, "ali", st.User.Username)
		require.True(t, f.hasTokens())
	})

	t.Run("ended session broadcasts once", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t)
		f.backend.on(refreshRoute, http.StatusOK, `{"access":"fresh"}`)
		f.backend.on(identityRoute, http.StatusUnauthorized, `{}`)

		f.session.FetchUserData(t.Context())

		require.False(t, f.session.State().Authenticated)
		require.False(t, f.hasTokens())
		require.Equal(t, int32(1), f.logouts.Load())
	})

	t.Run("spacing", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t)
		f.backend.on(identityRoute, http.StatusBadGateway, `{}`)

		f.session.FetchUserData(t.Context())
		f.session.FetchUserData(t.Context())
		require.Equal(t, 1, f.backend.count(identityRoute))

		f.clock.advance(2 * time.Second)
		f.session.FetchUserData(t.Context())
		require.Equal(t, 2, f.backend.count(identityRoute))
	})
}

func TestRefreshUserData(t *testing.T) {
	t.Run("bypasses the cache within spacing", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t)
		f.backend.on(identityRoute, http.StatusOK, employerBody)

		f.session.RefreshUserData(t.Context())
		f.session.RefreshUserData(t.Context())
		require.Equal(t, 1, f.backend.count(identityRoute))

		f.clock.advance(5 * time.Second)
		f.session.RefreshUserData(t.Context())
		require.Equal(t, 2, f.backend.count(identityRoute))
	})

	t.Run("expired access token refreshes first", func(t *testing.T) {
		f := newFixture(t)
		f.store.Set(store.AccessTokenKey, tokentest.Issue(t, "7", f.clock.now().Add(-time.Minute)), store.DefaultTTLDays)
		f.store.Set(store.RefreshTokenKey, "refresh-1", store.DefaultTTLDays)
		fresh := tokentest.Issue(t, "7", f.clock.now().Add(5*time.Hour))
		f.backend.on(refreshRoute, http.StatusOK, `{"access":"`+fresh+`"}`)
		f.backend.on(identityRoute, http.StatusOK, employerBody)

		f.session.RefreshUserData(t.Context())

		require.Equal(t, []string{"Bearer " + fresh}, f.backend.auth(identityRoute))
		require.True(t, f.session.State().Authenticated)
	})

	t.Run("undecodable access token logs out", func(t *testing.T) {
		f := newFixture(t)
		f.store.Set(store.AccessTokenKey, "not-a-jwt", store.DefaultTTLDays)
		f.store.Set(store.RefreshTokenKey, "refresh-1", store.DefaultTTLDays)

		f.session.RefreshUserData(t.Context())

		require.False(t, f.hasTokens())
		require.Equal(t, int32(1), f.logouts.Load())
		require.Zero(t, f.backend.count(identityRoute))
	})
}

func TestUpdateUserType(t *testing.T) {
	f := newFixture(t)
	access := f.signIn(t)
	f.backend.on(identityRoute, http.StatusOK, `{"username":"ali","phone":"0912","user_type":"JS"}`)
	f.backend.on("PATCH /users/ali/", http.StatusOK, employerBody)

	_, err := f.session.UpdateUserType(t.Context(), "AD")
	require.ErrorIs(t, err, apperrors.ErrInvalidUserType)
	require.Zero(t, f.backend.count("PATCH /users/ali/"))

	p, err := f.session.UpdateUserType(t.Context(), "em")
	require.NoError(t, err)
	require.True(t, p.IsEmployer())
	require.Equal(t, []string{"Bearer " + access}, f.backend.auth("PATCH /users/ali/"))
	require.True(t, f.session.State().User.IsEmployer())

	cached, err := f.session.GetUserData(t.Context())
	require.NoError(t, err)
	require.True(t, cached.IsEmployer())
	require.Equal(t, 1, f.backend.count(identityRoute))
}

func TestUpdateUserTypeSignedOut(t *testing.T) {
	f := newFixture(t)

	_, err := f.session.UpdateUserType(t.Context(), "EM")
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.backend.on(identityRoute, http.StatusOK, employerBody)
	f.session.FetchUserData(t.Context())
	require.True(t, f.session.IsAuthenticated())

	f.session.Logout()

	require.False(t, f.session.IsAuthenticated())
	require.False(t, f.hasTokens())
	require.Equal(t, 1, f.store.Deletes(store.AccessTokenKey))
	require.Equal(t, 1, f.store.Deletes(store.RefreshTokenKey))
	require.Nil(t, f.session.State().User)
	require.Equal(t, int32(1), f.logouts.Load())

	f.backend.on(identityRoute, http.StatusOK, `{"username":"someone-else","user_type":"JS"}`)
	p, err := f.session.GetUserData(t.Context())
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestKeepalive(t *testing.T) {
	f := newFixture(t)
	f.signIn(t)
	f.backend.on(identityRoute, http.StatusOK, employerBody)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.session.Keepalive(ctx, time.Hour)
	}()

	require.Eventually(t, func() bool {
		return f.session.State().Authenticated
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
	require.Equal(t, 1, f.backend.count(identityRoute))
}
