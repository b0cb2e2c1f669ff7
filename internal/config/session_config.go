package config

import "time"

type SessionConfig interface {
	GetProfileTTL() time.Duration
	GetRefreshHorizon() time.Duration
	GetFetchSpacing() time.Duration
	GetRefreshAllSpacing() time.Duration
	GetKeepaliveInterval() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetProfileTTL() time.Duration {
	return 5 * time.Minute
}

// GetRefreshHorizon is how close to exp an access token may get before a
// background refresh is started.
func (Session) GetRefreshHorizon() time.Duration {
	return 2 * time.Hour
}

func (Session) GetFetchSpacing() time.Duration {
	return 2 * time.Second
}

func (Session) GetRefreshAllSpacing() time.Duration {
	return 5 * time.Second
}

func (Session) GetKeepaliveInterval() time.Duration {
	return 15 * time.Minute
}
