package otp

import (
	"context"

	"github.com/Sadraka/maherkar-sub001/internal/config"
	"github.com/rs/zerolog/log"
)

// Notifier surfaces a freshly issued code to the operator. This is a
// development aid for environments without an SMS gateway.
type Notifier interface {
	Notify(ctx context.Context, ch *Challenge, code string)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, *Challenge, string) {}

// LogNotifier writes issued codes to the global logger.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, ch *Challenge, code string) {
	log.Info().
		Str("purpose", ch.Purpose.String()).
		Str("phone", ch.Phone).
		Str("handle", ch.Handle).
		Str("code", code).
		Msg("verification code issued")
}

// NotifierFromConfig returns a LogNotifier when codes may be surfaced and a
// NopNotifier otherwise.
func NotifierFromConfig(cfg config.EnvConfig) Notifier {
	if cfg.GetSurfaceOTPCode() {
		return LogNotifier{}
	}
	return NopNotifier{}
}
