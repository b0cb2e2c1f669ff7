package profile

import (
	"sync"
	"time"
)

// Guard admits one identity fetch at a time and suppresses attempts that
// come too soon after the previous one.
type Guard struct {
	lock          sync.Mutex
	inProgress    bool
	lastAttemptAt time.Time
	nowFunc       func() time.Time
}

func NewGuard(now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{nowFunc: now}
}

// TryAcquire claims the guard unless a fetch is running or the last attempt
// was less than spacing ago. A successful claim records the attempt time and
// must be paired with Release.
func (g *Guard) TryAcquire(spacing time.Duration) bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	if g.inProgress {
		return false
	}
	now := g.nowFunc()
	if !g.lastAttemptAt.IsZero() && now.Sub(g.lastAttemptAt) < spacing {
		return false
	}
	g.inProgress = true
	g.lastAttemptAt = now
	return true
}

func (g *Guard) Release() {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.inProgress = false
}

// Touch records an attempt without holding the guard, e.g. after a login
// already loaded the profile.
func (g *Guard) Touch() {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.lastAttemptAt = g.nowFunc()
}

func (g *Guard) InProgress() bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.inProgress
}
