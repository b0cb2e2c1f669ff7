package session

import (
	"context"

	"github.com/Sadraka/maherkar-sub001/api"
	apperrors "github.com/Sadraka/maherkar-sub001/internal/errors"
	"github.com/Sadraka/maherkar-sub001/otp"
	"github.com/Sadraka/maherkar-sub001/users"
)

// identity lets the OTP engine populate this session's cache.
type identity struct {
	s *Session
}

var _ otp.Identity = identity{}

func (i identity) Prime(p *users.Profile) {
	i.s.cache.Put(p)
}

// Fetch drops whatever the cache held for a previous session, since new
// tokens were just stored, and loads the identity for them.
func (i identity) Fetch(ctx context.Context) (*users.Profile, error) {
	i.s.cache.Clear()
	return i.s.GetUserData(ctx)
}

// RequestLoginCode sends a login code to phone.
func (s *Session) RequestLoginCode(ctx context.Context, phone string) (*otp.Challenge, error) {
	return s.engine.RequestCode(ctx, otp.PurposeLogin, phone, nil)
}

// RequestRegisterCode sends a registration code to phone.
func (s *Session) RequestRegisterCode(ctx context.Context, phone string, payload otp.RegisterPayload) (*otp.Challenge, error) {
	return s.engine.RequestCode(ctx, otp.PurposeRegister, phone, &payload)
}

// Verify submits code for ch and signs the user in.
func (s *Session) Verify(ctx context.Context, ch *otp.Challenge, code string) (*users.Profile, error) {
	return s.signIn(s.engine.ValidateCode(ctx, ch, code))
}

// VerifyLogin submits a login code for a handle issued earlier.
func (s *Session) VerifyLogin(ctx context.Context, handle, code string) (*users.Profile, error) {
	return s.signIn(s.engine.ValidateLogin(ctx, handle, code))
}

// VerifyRegister submits a registration code for a handle issued earlier.
func (s *Session) VerifyRegister(ctx context.Context, handle, code string) (*users.Profile, error) {
	return s.signIn(s.engine.ValidateRegister(ctx, handle, code))
}

func (s *Session) signIn(p *users.Profile, err error) (*users.Profile, error) {
	if err != nil {
		return nil, err
	}
	s.guard.Touch()
	// The profile fallback may have ended the session it just started.
	if !s.tokens.IsAuthenticated() {
		s.setUser(nil)
		return nil, s.client.Localizer().Error(api.ClassStatus, apperrors.ErrNotAuthenticated)
	}
	s.setUser(p)
	return p, nil
}
