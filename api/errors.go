package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sort"
	"strings"
	"syscall"

	apperrors "github.com/Sadraka/maherkar-sub001/internal/errors"
	"github.com/Sadraka/maherkar-sub001/internal/utils"
)

// Class groups backend failures by how they were detected.
type Class int

const (
	ClassTransport  Class = iota + 1 // no response received
	ClassStatus                      // non-2xx response
	ClassValidation                  // field errors in a 400 body
	ClassProtocol                    // 2xx with an unusable body
)

func (c Class) String() string {
	switch c {
	case ClassTransport:
		return "transport"
	case ClassStatus:
		return "status"
	case ClassValidation:
		return "validation"
	case ClassProtocol:
		return "protocol"
	}
	return "unknown"
}

// Error is a classified backend failure. Message is safe to show to users.
// errors.Is matches Kind, the sentinel for Status and the underlying cause.
type Error struct {
	Class   Class
	Status  int
	Kind    error
	Message string
	Fields  map[string]string // first message per field, validation class only
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 3)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if s := statusKind(e.Status); e.Status != 0 && s != e.Kind {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func statusKind(status int) error {
	switch status {
	case http.StatusBadRequest:
		return apperrors.ErrBadRequest
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusInternalServerError:
		return apperrors.ErrServerError
	case http.StatusBadGateway:
		return apperrors.ErrBadGateway
	case http.StatusServiceUnavailable:
		return apperrors.ErrServiceUnavailable
	case http.StatusGatewayTimeout:
		return apperrors.ErrGatewayTimeout
	}
	return apperrors.ErrUnexpectedStatus
}

func transportKind(err error) error {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.ErrTimeout
	case errors.As(err, &dnsErr):
		return apperrors.ErrDNS
	case errors.Is(err, syscall.ECONNREFUSED):
		return apperrors.ErrConnectionRefused
	case errors.As(err, &netErr) && netErr.Timeout():
		return apperrors.ErrTimeout
	}
	return apperrors.ErrNetwork
}

// transportError classifies a failed round trip. Caller cancellation and a
// missing token are passed through untouched.
func (c *Client) transportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, apperrors.ErrNotAuthenticated) {
		return err
	}
	kind := transportKind(err)
	return &Error{Class: ClassTransport, Kind: kind, Message: c.localizer.Message(kind), Err: err}
}

// statusError classifies a non-2xx response.
func (c *Client) statusError(status int, payload []byte) *Error {
	if status == http.StatusBadRequest {
		if fields, order := fieldMessages(payload); len(order) > 0 {
			return c.validationError(fields, order)
		}
	}
	kind := statusKind(status)
	return &Error{Class: ClassStatus, Status: status, Kind: kind, Message: c.localizer.Message(kind)}
}

func (c *Client) validationError(fields map[string]string, order []string) *Error {
	e := &Error{Class: ClassValidation, Status: http.StatusBadRequest, Fields: fields}
	for _, field := range order {
		if kind := validationKind(field, fields[field]); kind != nil {
			e.Kind = kind
			e.Message = c.localizer.Message(kind)
			return e
		}
	}
	e.Kind = apperrors.ErrValidation
	e.Message = fields[order[0]]
	return e
}

// protocolError reports a 2xx response the client could not use.
func (c *Client) protocolError(status int, cause error) *Error {
	return &Error{
		Class:   ClassProtocol,
		Status:  status,
		Kind:    apperrors.ErrMalformedResponse,
		Message: c.localizer.Message(apperrors.ErrMalformedResponse),
		Err:     cause,
	}
}

// Fields the backend reports on, most specific first.
var fieldOrder = []string{"phone", "full_name", "user_type", "code", "non_field_errors", "detail", "error", "message"}

// fieldMessages reads a DRF-style error body, optionally wrapped in Detail,
// and returns the first message per field along with a stable field order.
func fieldMessages(payload []byte) (map[string]string, []string) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, nil
	}
	for _, key := range []string{"Detail", "detail"} {
		var inner map[string]json.RawMessage
		if raw, ok := body[key]; ok && json.Unmarshal(raw, &inner) == nil {
			delete(body, key)
			for k, v := range inner {
				body[k] = v
			}
		}
	}

	fields := make(map[string]string, len(body))
	for k, v := range body {
		if msg := utils.FirstMessage(v); msg != "" {
			fields[k] = msg
		}
	}

	order := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fieldOrder))
	for _, k := range fieldOrder {
		seen[k] = true
		if _, ok := fields[k]; ok {
			order = append(order, k)
		}
	}
	rest := make([]string, 0, len(fields))
	for k := range fields {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return fields, append(order, rest...)
}

func validationKind(field, msg string) error {
	m := strings.ToLower(msg)
	switch {
	case containsAny(m, "already exists", "already registered", "قبلا", "قبلاً", "تکراری"):
		switch field {
		case "phone":
			return apperrors.ErrPhoneAlreadyRegistered
		case "full_name":
			return apperrors.ErrFullNameAlreadyRegistered
		case "user_type":
			return apperrors.ErrUserTypeAlreadyRegistered
		}
	case containsAny(m, "does not exist", "not registered", "موجود نیست", "وجود ندارد", "یافت نشد"):
		if field == "phone" || field == "non_field_errors" {
			return apperrors.ErrPhoneNotFound
		}
	case containsAny(m, "required", "may not be blank", "الزامی"):
		return apperrors.ErrRequiredField
	}
	return nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// UserMessage returns the human-readable message of the first *Error in
// err's chain, or err's own text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
