package settings

import (
	"encoding/json"
	"time"
)

// SettingRegistrationCodeRequired gates public self-registration: when the
// stored value is JSON true, /register demands a valid code.
const SettingRegistrationCodeRequired = "registration_code_required"

// Setting is one key of the system-wide configuration map. Values are
// stored as raw JSON so booleans, strings and objects all fit.
type Setting struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Bool reads the value as a JSON boolean, false on any other shape.
func (s Setting) Bool() bool {
	var v bool
	if err := json.Unmarshal(s.Value, &v); err != nil {
		return false
	}
	return v
}

// RegistrationCode admits self-registered accounts, optionally pinning
// the role they receive.
type RegistrationCode struct {
	ID                int64      `json:"id"`
	Code              string     `json:"code"`
	RoleID            *int64     `json:"role_id,omitempty"`
	UsesLeft          int        `json:"uses_left"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	CreatedBy         string     `json:"created_by,omitempty"`
	CreatedByNickname string     `json:"created_by_nickname,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Expired reports whether the code's deadline has passed.
func (c RegistrationCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// CodeInput carries the writable registration-code fields.
type CodeInput struct {
	Code      string     `json:"code" validate:"required,min=4"`
	RoleID    *int64     `json:"role_id"`
	UsesLeft  int        `json:"uses_left" validate:"gte=0"`
	ExpiresAt *time.Time `json:"expires_at"`
}
