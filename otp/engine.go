// Package otp drives the one-time-password login and registration flows.
package otp

import (
	"context"
	"strings"
	"time"

	"github.com/Sadraka/maherkar-sub001/api"
	apperrors "github.com/Sadraka/maherkar-sub001/internal/errors"
	"github.com/Sadraka/maherkar-sub001/users"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Backend is the subset of the API client the engine needs.
type Backend interface {
	RequestLoginOTP(ctx context.Context, phone string) (*api.OTPChallenge, error)
	RequestRegisterOTP(ctx context.Context, req api.RegisterRequest) (*api.OTPChallenge, error)
	ValidateLoginOTP(ctx context.Context, handle, code string) (*api.Validation, error)
	ValidateRegisterOTP(ctx context.Context, handle, code string) (*api.Validation, error)
}

// TokenSink persists an issued token pair.
type TokenSink interface {
	StoreTokens(access, refresh string)
}

// Identity is where validated profiles go and where a login without a
// profile in the response loads one from.
type Identity interface {
	Prime(p *users.Profile)
	Fetch(ctx context.Context) (*users.Profile, error)
}

var _ Backend = (*api.Client)(nil)

type Engine struct {
	backend   Backend
	tokens    TokenSink
	identity  Identity
	notifier  Notifier
	localizer api.Localizer
	nowFunc   func() time.Time
}

type EngineOption func(*Engine)

func WithNotifier(n Notifier) EngineOption {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func WithLocalizer(l api.Localizer) EngineOption {
	return func(e *Engine) {
		e.localizer = l
	}
}

func WithNowFunc(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = now
	}
}

func NewEngine(backend Backend, tokens TokenSink, identity Identity, options ...EngineOption) *Engine {
	e := &Engine{
		backend:   backend,
		tokens:    tokens,
		identity:  identity,
		notifier:  NopNotifier{},
		localizer: api.NewLocalizer(api.LocaleFa),
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// RequestCode starts a challenge for phone. The challenge is returned even on
// error, in state Failed, so callers can inspect it.
func (e *Engine) RequestCode(ctx context.Context, purpose Purpose, phone string, payload *RegisterPayload) (*Challenge, error) {
	ch := &Challenge{
		ID:        uuid.New(),
		Purpose:   purpose,
		Phone:     strings.TrimSpace(phone),
		Payload:   payload,
		CreatedAt: e.nowFunc(),
	}
	ch.lock.Lock()
	defer ch.lock.Unlock()

	if err := e.precheck(ch); err != nil {
		ch.fail(err)
		return ch, err
	}

	var (
		issued *api.OTPChallenge
		err    error
	)
	switch purpose {
	case PurposeLogin:
		issued, err = e.backend.RequestLoginOTP(ctx, ch.Phone)
	case PurposeRegister:
		issued, err = e.backend.RequestRegisterOTP(ctx, api.RegisterRequest{
			Phone:    ch.Phone,
			FullName: strings.TrimSpace(payload.FullName),
			UserType: strings.ToUpper(strings.TrimSpace(payload.UserType)),
		})
	}
	if err != nil {
		err = errors.Wrapf(err, "request %s code", purpose)
		ch.fail(err)
		return ch, err
	}

	ch.Handle = issued.Handle
	ch.state = StateCodeRequested
	log.Debug().Str("challenge", ch.ID.String()).Str("purpose", purpose.String()).Msg("code requested")
	if issued.Code != "" {
		e.notifier.Notify(ctx, ch, issued.Code)
	}
	return ch, nil
}

func (e *Engine) precheck(ch *Challenge) error {
	if ch.Purpose != PurposeLogin && ch.Purpose != PurposeRegister {
		return errors.Wrapf(apperrors.ErrChallengeState, "unknown purpose %d", int(ch.Purpose))
	}
	if ch.Phone == "" {
		return e.localizer.Error(api.ClassValidation, apperrors.ErrRequiredField)
	}
	if ch.Purpose != PurposeRegister {
		return nil
	}
	if ch.Payload == nil || strings.TrimSpace(ch.Payload.FullName) == "" || strings.TrimSpace(ch.Payload.UserType) == "" {
		return e.localizer.Error(api.ClassValidation, apperrors.ErrRequiredField)
	}
	if !users.ValidRawUserType(strings.ToUpper(strings.TrimSpace(ch.Payload.UserType))) {
		return e.localizer.Error(api.ClassValidation, apperrors.ErrInvalidUserType)
	}
	return nil
}

// Resume rebuilds a challenge awaiting a code from a handle issued earlier,
// e.g. one carried in a verification page URL.
func (e *Engine) Resume(purpose Purpose, handle, phone string) *Challenge {
	return &Challenge{
		ID:        uuid.New(),
		Purpose:   purpose,
		Handle:    strings.TrimSpace(handle),
		Phone:     strings.TrimSpace(phone),
		CreatedAt: e.nowFunc(),
		state:     StateCodeRequested,
	}
}

// ValidateCode submits code for ch and returns the signed-in profile.
//
// Tokens are stored before the profile is primed or fetched. A login whose
// response carries no profile loads it through Identity; if that fails the
// login still succeeds with a placeholder profile.
func (e *Engine) ValidateCode(ctx context.Context, ch *Challenge, code string) (*users.Profile, error) {
	ch.lock.Lock()
	defer ch.lock.Unlock()

	switch ch.state {
	case StateCodeRequested:
	case StateValidated:
		return nil, apperrors.ErrChallengeConsumed
	default:
		return nil, errors.Wrapf(apperrors.ErrChallengeState, "challenge is %s", ch.state)
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, e.localizer.Error(api.ClassValidation, apperrors.ErrRequiredField)
	}

	var (
		v   *api.Validation
		err error
	)
	switch ch.Purpose {
	case PurposeRegister:
		v, err = e.backend.ValidateRegisterOTP(ctx, ch.Handle, code)
	default:
		v, err = e.backend.ValidateLoginOTP(ctx, ch.Handle, code)
	}
	if err != nil {
		err = errors.Wrapf(err, "validate %s code", ch.Purpose)
		ch.fail(err)
		return nil, err
	}

	e.tokens.StoreTokens(v.Tokens.Access, v.Tokens.Refresh)

	profile := v.User
	if profile != nil {
		e.identity.Prime(profile)
	} else {
		profile = e.loadProfile(ctx, ch)
	}

	ch.state = StateValidated
	log.Debug().Str("challenge", ch.ID.String()).Str("purpose", ch.Purpose.String()).Msg("code validated")
	return profile, nil
}

func (e *Engine) loadProfile(ctx context.Context, ch *Challenge) *users.Profile {
	profile, err := e.identity.Fetch(ctx)
	if err == nil && profile != nil {
		return profile
	}
	log.Warn().Err(err).Str("challenge", ch.ID.String()).Msg("signed in but identity could not be loaded, using placeholder profile")
	return users.Placeholder(ch.Phone)
}

// ValidateLogin validates a login code against a handle issued earlier. The
// phone is not known on this path, so a placeholder profile has none.
func (e *Engine) ValidateLogin(ctx context.Context, handle, code string) (*users.Profile, error) {
	return e.ValidateCode(ctx, e.Resume(PurposeLogin, handle, ""), code)
}

// ValidateRegister validates a registration code against a handle issued
// earlier.
func (e *Engine) ValidateRegister(ctx context.Context, handle, code string) (*users.Profile, error) {
	return e.ValidateCode(ctx, e.Resume(PurposeRegister, handle, ""), code)
}
