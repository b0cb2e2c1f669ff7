package users

import (
	"strings"
	"time"
)

// UserType is the logical user type exposed to callers.
type UserType string

const (
	UserTypeEmployer  UserType = "employer"
	UserTypeJobSeeker UserType = "jobseeker"
	UserTypeAdmin     UserType = "admin"
)

// Raw user-type codes as stored by the backend.
const (
	RawEmployer  = "EM"
	RawJobSeeker = "JS"
	RawAdmin     = "AD"
)

var rawToLogical = map[string]UserType{
	RawEmployer:  UserTypeEmployer,
	RawJobSeeker: UserTypeJobSeeker,
	RawAdmin:     UserTypeAdmin,
}

// Profile is the authenticated identity as served to callers.
type Profile struct {
	Username    string     `json:"username,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	UserType    UserType   `json:"user_type,omitempty"`     // Normalized logical type
	RawUserType string     `json:"raw_user_type,omitempty"` // Backend code, e.g. "EM"
	FullName    string     `json:"full_name,omitempty"`
	Email       string     `json:"email,omitempty"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	Placeholder bool       `json:"placeholder,omitempty"` // Degraded profile, see Placeholder
}

// IsEmployer reports whether the profile belongs to an employer account.
func (p Profile) IsEmployer() bool {
	return p.UserType == UserTypeEmployer
}

// NormalizeUserType maps a backend user-type code to its logical value.
// Values that are already logical, and unknown codes, pass through unchanged.
func NormalizeUserType(raw string) UserType {
	raw = strings.TrimSpace(raw)
	if t, ok := rawToLogical[strings.ToUpper(raw)]; ok {
		return t
	}
	return UserType(raw)
}

// ValidRawUserType reports whether code is a user type a user may pick for
// themselves.
func ValidRawUserType(code string) bool {
	return code == RawEmployer || code == RawJobSeeker
}

// Placeholder is the minimal profile handed out when tokens were issued but
// the identity could not be loaded. Its fields are fixed: empty username and
// full name, job-seeker user type (raw "JS") and Placeholder set. Phone is the
// one the code was requested for, or empty when the login was resumed from a
// handle alone.
func Placeholder(phone string) *Profile {
	return &Profile{
		Phone:       phone,
		UserType:    UserTypeJobSeeker,
		RawUserType: RawJobSeeker,
		Placeholder: true,
	}
}
