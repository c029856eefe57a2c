// Package directory provides typed access to the identity provider's user,
// group, application and factor endpoints.
package directory

import (
	"encoding/json"
	"strconv"
)

// Defaults used when a remote field is absent.
const (
	NotAvailable  = "N/A"
	UnknownStatus = "Unknown"
)

// Profile is a schema-less profile mapping. Custom attributes vary by
// organization, so keys are looked up by name. A JSON null counts as absent.
type Profile map[string]any

// UnmarshalJSON decodes a profile object; null yields an empty profile.
func (p *Profile) UnmarshalJSON(data []byte) error {
	m := map[string]any{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if m == nil {
		m = map[string]any{}
	}
	*p = m
	return nil
}

// String returns the value at key as a string, or "" when absent.
func (p Profile) String(key string) string {
	return p.StringOr(key, "")
}

// StringOr returns the value at key as a string, or def when the key is
// absent or null.
func (p Profile) StringOr(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	switch value := v.(type) {
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			return def
		}
		return string(raw)
	}
}

// Well-known profile attributes.
const (
	AttrLogin        = "login"
	AttrEmail        = "email"
	AttrFirstName    = "firstName"
	AttrLastName     = "lastName"
	AttrDepartment   = "department"
	AttrUserType     = "userType"
	AttrTitle        = "title"
	AttrManager      = "manager"
	AttrOrganization = "organization"
)

// User is a directory entry. Immutable once fetched.
type User struct {
	ID      string  `json:"id"`
	Status  string  `json:"status"`
	Profile Profile `json:"profile"`
}

// StatusOr returns the lifecycle status, or def when absent.
func (u User) StatusOr(def string) string {
	if u.Status == "" {
		return def
	}
	return u.Status
}

// Login returns profile.login.
func (u User) Login() string { return u.Profile.String(AttrLogin) }

// Email returns profile.email.
func (u User) Email() string { return u.Profile.String(AttrEmail) }

// Group is a directory group.
type Group struct {
	ID      string       `json:"id"`
	Type    string       `json:"type"`
	Profile GroupProfile `json:"profile"`
}

// GroupProfile holds the group's display attributes.
type GroupProfile struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Application is an application instance.
type Application struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

// AppUser is an assignment of a user to an application.
type AppUser struct {
	ID     string `json:"id"`
	Scope  string `json:"scope"`
	Status string `json:"status"`
}

// Factor types.
const (
	FactorSignedNonce = "signed_nonce"
)

// Factor is an enrolled authentication factor.
type Factor struct {
	ID         string        `json:"id"`
	FactorType string        `json:"factorType"`
	Provider   string        `json:"provider"`
	Status     string        `json:"status"`
	Profile    FactorProfile `json:"profile"`
}

// FactorProfile describes the enrolled device.
type FactorProfile struct {
	Platform string `json:"platform"`
	Name     string `json:"name"`
}
