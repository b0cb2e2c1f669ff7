package api

import (
	"strings"

	apperrors "github.com/Sadraka/maherkar-sub001/internal/errors"
)

// Supported locales.
const (
	LocaleFa = "fa"
	LocaleEn = "en"
)

type messageID string

const (
	msgConnectionRefused  messageID = "connection_refused"
	msgDNS                messageID = "dns"
	msgTimeout            messageID = "timeout"
	msgNetwork            messageID = "network"
	msgBadRequest         messageID = "bad_request"
	msgUnauthorized       messageID = "unauthorized"
	msgForbidden          messageID = "forbidden"
	msgNotFound           messageID = "not_found"
	msgServerError        messageID = "server_error"
	msgBadGateway         messageID = "bad_gateway"
	msgServiceUnavailable messageID = "service_unavailable"
	msgGatewayTimeout     messageID = "gateway_timeout"
	msgUnexpectedStatus   messageID = "unexpected_status"
	msgPhoneRegistered    messageID = "phone_registered"
	msgFullNameRegistered messageID = "full_name_registered"
	msgUserTypeRegistered messageID = "user_type_registered"
	msgPhoneNotFound      messageID = "phone_not_found"
	msgRequiredField      messageID = "required_field"
	msgValidation         messageID = "validation"
	msgInvalidCode        messageID = "invalid_code"
	msgExpiredCode        messageID = "expired_code"
	msgInvalidHandle      messageID = "invalid_handle"
	msgMalformedResponse  messageID = "malformed_response"
	msgNotAuthenticated   messageID = "not_authenticated"
	msgInvalidUserType    messageID = "invalid_user_type"
)

var kindMessages = map[error]messageID{
	apperrors.ErrConnectionRefused:         msgConnectionRefused,
	apperrors.ErrDNS:                       msgDNS,
	apperrors.ErrTimeout:                   msgTimeout,
	apperrors.ErrNetwork:                   msgNetwork,
	apperrors.ErrBadRequest:                msgBadRequest,
	apperrors.ErrUnauthorized:              msgUnauthorized,
	apperrors.ErrForbidden:                 msgForbidden,
	apperrors.ErrNotFound:                  msgNotFound,
	apperrors.ErrServerError:               msgServerError,
	apperrors.ErrBadGateway:                msgBadGateway,
	apperrors.ErrServiceUnavailable:        msgServiceUnavailable,
	apperrors.ErrGatewayTimeout:            msgGatewayTimeout,
	apperrors.ErrUnexpectedStatus:          msgUnexpectedStatus,
	apperrors.ErrPhoneAlreadyRegistered:    msgPhoneRegistered,
	apperrors.ErrFullNameAlreadyRegistered: msgFullNameRegistered,
	apperrors.ErrUserTypeAlreadyRegistered: msgUserTypeRegistered,
	apperrors.ErrPhoneNotFound:             msgPhoneNotFound,
	apperrors.ErrRequiredField:             msgRequiredField,
	apperrors.ErrValidation:                msgValidation,
	apperrors.ErrInvalidCode:               msgInvalidCode,
	apperrors.ErrInvalidHandle:             msgInvalidHandle,
	apperrors.ErrMalformedResponse:         msgMalformedResponse,
	apperrors.ErrNotAuthenticated:          msgNotAuthenticated,
	apperrors.ErrInvalidUserType:           msgInvalidUserType,
}

var catalog = map[string]map[messageID]string{
	LocaleFa: {
		msgConnectionRefused:  "ارتباط با سرور برقرار نشد. لطفاً بعداً تلاش کنید.",
		msgDNS:                "آدرس سرور یافت نشد. اتصال اینترنت خود را بررسی کنید.",
		msgTimeout:            "زمان پاسخگویی سرور به پایان رسید. لطفاً دوباره تلاش کنید.",
		msgNetwork:            "خطا در ارتباط با شبکه. لطفاً اتصال اینترنت خود را بررسی کنید.",
		msgBadRequest:         "درخواست نامعتبر است.",
		msgUnauthorized:       "لطفاً دوباره وارد حساب کاربری خود شوید.",
		msgForbidden:          "شما اجازه دسترسی به این بخش را ندارید.",
		msgNotFound:           "مورد درخواستی یافت نشد.",
		msgServerError:        "خطای داخلی سرور. لطفاً بعداً تلاش کنید.",
		msgBadGateway:         "خطا در دروازه سرور. لطفاً بعداً تلاش کنید.",
		msgServiceUnavailable: "سرویس در حال حاضر در دسترس نیست.",
		msgGatewayTimeout:     "سرور در زمان مقرر پاسخ نداد.",
		msgUnexpectedStatus:   "خطای غیرمنتظره از سرور دریافت شد.",
		msgPhoneRegistered:    "این شماره تلفن قبلاً ثبت شده است.",
		msgFullNameRegistered: "این نام قبلاً ثبت شده است.",
		msgUserTypeRegistered: "نوع کاربری قبلاً ثبت شده است.",
		msgPhoneNotFound:      "شماره تلفن موجود نیست. لطفاً ابتدا ثبت‌نام کنید.",
		msgRequiredField:      "لطفاً تمام فیلدهای الزامی را پر کنید.",
		msgValidation:         "اطلاعات وارد شده معتبر نیست.",
		msgInvalidCode:        "کد تایید نامعتبر است. لطفاً کد صحیح را وارد کنید.",
		msgExpiredCode:        "کد تایید منقضی شده است. لطفاً دوباره درخواست کد کنید.",
		msgInvalidHandle:      "درخواست نامعتبر است. لطفاً دوباره تلاش کنید.",
		msgMalformedResponse:  "پاسخ نامعتبر از سرور دریافت شد.",
		msgNotAuthenticated:   "لطفاً ابتدا وارد حساب کاربری خود شوید.",
		msgInvalidUserType:    "نوع کاربر نامعتبر است.",
	},
	LocaleEn: {
		msgConnectionRefused:  "Could not connect to the server. Please try again later.",
		msgDNS:                "The server address could not be resolved. Check your internet connection.",
		msgTimeout:            "The server took too long to respond. Please try again.",
		msgNetwork:            "Network error. Please check your internet connection.",
		msgBadRequest:         "The request was invalid.",
		msgUnauthorized:       "Please sign in again.",
		msgForbidden:          "You do not have permission to access this.",
		msgNotFound:           "The requested resource was not found.",
		msgServerError:        "Internal server error. Please try again later.",
		msgBadGateway:         "Bad gateway. Please try again later.",
		msgServiceUnavailable: "The service is temporarily unavailable.",
		msgGatewayTimeout:     "The server gateway timed out.",
		msgUnexpectedStatus:   "Unexpected response from the server.",
		msgPhoneRegistered:    "This phone number is already registered.",
		msgFullNameRegistered: "This name is already registered.",
		msgUserTypeRegistered: "This user type is already registered.",
		msgPhoneNotFound:      "Phone number not found. Please register first.",
		msgRequiredField:      "Please fill in all required fields.",
		msgValidation:         "The submitted data is invalid.",
		msgInvalidCode:        "Invalid verification code. Please enter the correct code.",
		msgExpiredCode:        "The verification code has expired. Please request a new one.",
		msgInvalidHandle:      "Invalid or expired request. Please try again.",
		msgMalformedResponse:  "Received a malformed response from the server.",
		msgNotAuthenticated:   "Please sign in first.",
		msgInvalidUserType:    "Invalid user type.",
	},
}

// Localizer resolves error kinds to human-readable messages in one locale.
type Localizer struct {
	locale string
}

// NewLocalizer returns a Localizer for locale, falling back to Persian for
// anything unsupported.
func NewLocalizer(locale string) Localizer {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if _, ok := catalog[locale]; !ok {
		locale = LocaleFa
	}
	return Localizer{locale: locale}
}

func (l Localizer) Locale() string {
	if l.locale == "" {
		return LocaleFa
	}
	return l.locale
}

// Message returns the text for kind, or the unexpected-status text for kinds
// it does not know.
func (l Localizer) Message(kind error) string {
	id, ok := kindMessages[kind]
	if !ok {
		id = msgUnexpectedStatus
	}
	return l.text(id)
}

func (l Localizer) text(id messageID) string {
	return catalog[l.Locale()][id]
}

// Error builds a classified error for kind carrying the localized message.
func (l Localizer) Error(class Class, kind error) *Error {
	return &Error{Class: class, Kind: kind, Message: l.Message(kind)}
}
