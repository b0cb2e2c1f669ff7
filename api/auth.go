package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/Sadraka/maherkar-sub001/internal/errors"
	"github.com/Sadraka/maherkar-sub001/users"
	"golang.org/x/oauth2"
)

// OTPChallenge is what the backend returns when it issues a code.
type OTPChallenge struct {
	Handle string
	Code   string // surfaced in development builds only
}

// RegisterRequest is the payload of a registration OTP request.
type RegisterRequest struct {
	Phone    string `json:"phone"`
	FullName string `json:"full_name"`
	UserType string `json:"user_type"`
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Validation is the result of a successful code validation. User is nil when
// the backend only returned tokens.
type Validation struct {
	Tokens  TokenPair
	User    *users.Profile
	Message string
}

type phoneRequest struct {
	Phone string `json:"phone"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type userTypeRequest struct {
	UserType string `json:"user_type"`
}

type challengeBody struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

type challengeResponse struct {
	Detail *challengeBody `json:"Detail"`
	challengeBody
}

type validateResponse struct {
	Detail *struct {
		Message string     `json:"Message"`
		User    *userDTO   `json:"User"`
		Token   *TokenPair `json:"Token"`
	} `json:"Detail"`
	TokenPair
	User *userDTO `json:"user"`
}

type userDTO struct {
	Username  string     `json:"username"`
	Phone     string     `json:"phone"`
	UserType  string     `json:"user_type"`
	FullName  string     `json:"full_name"`
	Email     string     `json:"email"`
	LastLogin *time.Time `json:"last_login"`
}

func (u *userDTO) profile() *users.Profile {
	if u == nil {
		return nil
	}
	raw := strings.TrimSpace(u.UserType)
	return &users.Profile{
		Username:    u.Username,
		Phone:       u.Phone,
		UserType:    users.NormalizeUserType(raw),
		RawUserType: raw,
		FullName:    u.FullName,
		Email:       u.Email,
		LastLogin:   u.LastLogin,
	}
}

// RequestLoginOTP asks the backend to send a login code to phone.
func (c *Client) RequestLoginOTP(ctx context.Context, phone string) (*OTPChallenge, error) {
	return c.requestOTP(ctx, "/auth/login-otp/", phoneRequest{Phone: phone})
}

// RequestRegisterOTP asks the backend to send a registration code.
func (c *Client) RequestRegisterOTP(ctx context.Context, req RegisterRequest) (*OTPChallenge, error) {
	return c.requestOTP(ctx, "/auth/register-otp/", req)
}

func (c *Client) requestOTP(ctx context.Context, path string, in any) (*OTPChallenge, error) {
	resp, err := c.send(ctx, http.MethodPost, path, in, nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, c.statusError(resp.status, resp.payload)
	}

	var parsed challengeResponse
	if err := json.Unmarshal(resp.payload, &parsed); err != nil {
		return nil, c.protocolError(resp.status, err)
	}
	body := parsed.challengeBody
	if parsed.Detail != nil {
		body = *parsed.Detail
	}
	if strings.TrimSpace(body.Token) == "" {
		return nil, c.protocolError(resp.status, nil)
	}
	return &OTPChallenge{Handle: body.Token, Code: body.Code}, nil
}

// ValidateLoginOTP submits a login code. The backend answers with either a
// bare token pair or tokens plus the user inside Detail.
func (c *Client) ValidateLoginOTP(ctx context.Context, handle, code string) (*Validation, error) {
	return c.validateOTP(ctx, "/auth/login-validate-otp/", handle, code)
}

// ValidateRegisterOTP submits a registration code.
func (c *Client) ValidateRegisterOTP(ctx context.Context, handle, code string) (*Validation, error) {
	return c.validateOTP(ctx, "/auth/register-otp-validate/", handle, code)
}

func (c *Client) validateOTP(ctx context.Context, prefix, handle, code string) (*Validation, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, c.localizer.Error(ClassValidation, apperrors.ErrInvalidHandle)
	}
	resp, err := c.send(ctx, http.MethodPost, prefix+url.PathEscape(handle)+"/", codeRequest{Code: strings.TrimSpace(code)}, nil)
	if err != nil {
		return nil, err
	}
	switch resp.status {
	case http.StatusBadRequest:
		e := c.statusError(resp.status, resp.payload)
		if e.Class == ClassValidation && e.Kind != apperrors.ErrValidation && e.Kind != apperrors.ErrRequiredField {
			return nil, e
		}
		return nil, c.codeError(resp.status, msgInvalidCode)
	case http.StatusUnauthorized:
		return nil, c.codeError(resp.status, msgExpiredCode)
	case http.StatusNotFound:
		e := c.statusError(resp.status, resp.payload)
		e.Kind = apperrors.ErrInvalidHandle
		e.Message = c.localizer.Message(apperrors.ErrInvalidHandle)
		return nil, e
	}
	if !resp.ok() {
		return nil, c.statusError(resp.status, resp.payload)
	}

	var parsed validateResponse
	if err := json.Unmarshal(resp.payload, &parsed); err != nil {
		return nil, c.protocolError(resp.status, err)
	}
	v := &Validation{Tokens: parsed.TokenPair, User: parsed.User.profile()}
	if parsed.Detail != nil {
		v.Message = parsed.Detail.Message
		if parsed.Detail.Token != nil {
			v.Tokens = *parsed.Detail.Token
		}
		if parsed.Detail.User != nil {
			v.User = parsed.Detail.User.profile()
		}
	}
	if v.Tokens.Access == "" || v.Tokens.Refresh == "" {
		return nil, c.protocolError(resp.status, nil)
	}
	return v, nil
}

func (c *Client) codeError(status int, id messageID) *Error {
	return &Error{
		Class:   ClassStatus,
		Status:  status,
		Kind:    apperrors.ErrInvalidCode,
		Message: c.localizer.text(id),
	}
}

// RefreshToken exchanges a refresh token for a new access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	resp, err := c.send(ctx, http.MethodPost, "/api/token/refresh/", refreshRequest{Refresh: refreshToken}, nil)
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", c.statusError(resp.status, resp.payload)
	}
	var parsed struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(resp.payload, &parsed); err != nil {
		return "", c.protocolError(resp.status, err)
	}
	if parsed.Access == "" {
		return "", c.protocolError(resp.status, nil)
	}
	return parsed.Access, nil
}

// FetchIdentity loads the profile of the user owning accessToken. The
// endpoint may answer with an object or a one-element list.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*users.Profile, error) {
	bearer := &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	resp, err := c.send(ctx, http.MethodGet, "/users/", nil, bearer.SetAuthHeader)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, c.statusError(resp.status, resp.payload)
	}
	return c.decodeProfile(resp)
}

// UpdateUserType changes the user type of username. It relies on the http
// client to authenticate the request.
func (c *Client) UpdateUserType(ctx context.Context, username, rawType string) (*users.Profile, error) {
	if strings.TrimSpace(username) == "" {
		return nil, c.localizer.Error(ClassValidation, apperrors.ErrNotAuthenticated)
	}
	resp, err := c.send(ctx, http.MethodPatch, "/users/"+url.PathEscape(username)+"/", userTypeRequest{UserType: rawType}, nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, c.statusError(resp.status, resp.payload)
	}
	return c.decodeProfile(resp)
}

func (c *Client) decodeProfile(resp response) (*users.Profile, error) {
	payload := bytes.TrimSpace(resp.payload)
	var dto userDTO
	if len(payload) > 0 && payload[0] == '[' {
		var list []userDTO
		if err := json.Unmarshal(payload, &list); err != nil {
			return nil, c.protocolError(resp.status, err)
		}
		if len(list) == 0 {
			return nil, c.protocolError(resp.status, nil)
		}
		dto = list[0]
	} else if err := json.Unmarshal(payload, &dto); err != nil {
		return nil, c.protocolError(resp.status, err)
	}
	if dto.Username == "" && dto.Phone == "" {
		return nil, c.protocolError(resp.status, nil)
	}
	return dto.profile(), nil
}
