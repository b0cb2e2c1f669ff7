package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	appNameVar        = "APP_NAME"
	envVar            = "ENV"
	logLevelVar       = "LOG_LEVEL"
	apiBaseURLVar     = "API_BASE_URL"
	apiTimeoutVar     = "API_TIMEOUT_MS"
	localeVar         = "LOCALE"
	surfaceOTPCodeVar = "SURFACE_OTP_CODE"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "MaherKar")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv(envVar)
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetAPIBaseURL returns the backend root every endpoint path is appended to,
// e.g. "https://api.maherkar.ir". Trailing slashes are removed.
func (EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, "http://localhost:8000"), "/")
}

// GetRequestTimeout bounds every backend call. A hung identity fetch must
// release the fetch guard, so there is always a timeout.
func (EnvVars) GetRequestTimeout() time.Duration {
	ms := GetEnvInt(apiTimeoutVar, 15000)
	if ms <= 0 {
		ms = 15000
	}
	return time.Duration(ms) * time.Millisecond
}

func (EnvVars) GetLocale() string {
	return strings.ToLower(GetEnv(localeVar, "fa"))
}

// GetSurfaceOTPCode reports whether issued OTP codes are surfaced to the
// operator. Defaults to on in DEV only.
func (e EnvVars) GetSurfaceOTPCode() bool {
	return GetEnvBool(surfaceOTPCodeVar, e.GetEnv() == "DEV")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(envVar string, defaultValue int) int {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return i
}

func GetEnvBool(envVar string, defaultValue bool) bool {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return b
}
