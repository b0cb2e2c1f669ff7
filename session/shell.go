package session

import (
	"sync"

	"github.com/Sadraka/maherkar-sub001/broadcast"
	"github.com/Sadraka/maherkar-sub001/users"
	"github.com/rs/zerolog/log"
)

// Shell is an independently mounted UI tree holding its own copy of the
// signed-in user. A logout anywhere resets every mounted shell.
type Shell struct {
	name    string
	session *Session

	lock          sync.RWMutex
	user          *users.Profile
	authenticated bool
	sub           *broadcast.Subscription
}

func (s *Session) NewShell(name string) *Shell {
	return &Shell{name: name, session: s}
}

// Mount copies the current session state and starts listening for logout.
func (sh *Shell) Mount() {
	sh.Sync()
	sh.lock.Lock()
	defer sh.lock.Unlock()
	if sh.sub == nil {
		sh.sub = sh.session.Subscribe(sh.handle)
	}
}

func (sh *Shell) Unmount() {
	sh.lock.Lock()
	sub := sh.sub
	sh.sub = nil
	sh.lock.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// Sync copies the session state into the shell.
func (sh *Shell) Sync() {
	st := sh.session.State()
	sh.lock.Lock()
	defer sh.lock.Unlock()
	sh.user = st.User
	sh.authenticated = st.Authenticated
}

func (sh *Shell) handle(e broadcast.Event) {
	if e != broadcast.Logout {
		return
	}
	sh.lock.Lock()
	defer sh.lock.Unlock()
	sh.user = nil
	sh.authenticated = false
	log.Debug().Str("shell", sh.name).Msg("shell reset on logout")
}

// View returns the shell's local user and authenticated flag.
func (sh *Shell) View() (*users.Profile, bool) {
	sh.lock.RLock()
	defer sh.lock.RUnlock()
	return sh.user, sh.authenticated
}

func (sh *Shell) Mounted() bool {
	sh.lock.RLock()
	defer sh.lock.RUnlock()
	return sh.sub != nil
}
