package otp

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Purpose int

const (
	PurposeLogin Purpose = iota + 1
	PurposeRegister
)

func (p Purpose) String() string {
	switch p {
	case PurposeLogin:
		return "login"
	case PurposeRegister:
		return "register"
	}
	return fmt.Sprintf("purpose(%d)", int(p))
}

type State int

const (
	StateIdle State = iota
	StateCodeRequested
	StateValidated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCodeRequested:
		return "code_requested"
	case StateValidated:
		return "validated"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// RegisterPayload carries the fields a registration code is requested with.
// UserType is a raw backend code (EM or JS).
type RegisterPayload struct {
	FullName string
	UserType string
}

// Challenge is one OTP transaction. Validated and Failed are terminal; a new
// attempt starts from a fresh challenge.
type Challenge struct {
	ID        uuid.UUID
	Purpose   Purpose
	Handle    string
	Phone     string
	Payload   *RegisterPayload
	CreatedAt time.Time

	lock  sync.Mutex
	state State
	err   error
}

func (c *Challenge) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state
}

// Err is the failure that moved the challenge to Failed, if any.
func (c *Challenge) Err() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.err
}

// caller holds c.lock
func (c *Challenge) fail(err error) {
	c.state = StateFailed
	c.err = err
}
