package config

import "time"

type Config interface {
	EnvConfig
	StoreConfig
	SessionConfig
	RouteConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetLocale() string
	GetSurfaceOTPCode() bool
}

type mainConfig struct {
	EnvVars
	Store
	Session
	Routes
}

func New() Config {
	return mainConfig{}
}
