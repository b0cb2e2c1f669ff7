package otp_test

import (
	"testing"

	"github.com/Sadraka/maherkar-sub001/internal/config"
	"github.com/Sadraka/maherkar-sub001/otp"
	"github.com/stretchr/testify/require"
)

func TestNotifierFromConfig(t *testing.T) {
	t.Setenv("SURFACE_OTP_CODE", "true")
	require.IsType(t, otp.LogNotifier{}, otp.NotifierFromConfig(config.EnvVars{}))

	t.Setenv("SURFACE_OTP_CODE", "false")
	require.IsType(t, otp.NopNotifier{}, otp.NotifierFromConfig(config.EnvVars{}))
}
