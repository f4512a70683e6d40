package model

import "fmt"

// UserProfile is whatever the identity backend reports for the current
// session. Fields vary by provider, so nothing here is guaranteed present.
type UserProfile map[string]any

func (u UserProfile) str(key string) string {
	if u == nil {
		return ""
	}
	switch v := u[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// ID returns `id`, falling back to the OIDC `sub` claim.
func (u UserProfile) ID() string {
	if id := u.str("id"); id != "" {
		return id
	}
	return u.str("sub")
}

func (u UserProfile) Email() string    { return u.str("email") }
func (u UserProfile) Provider() string { return u.str("provider") }

// DisplayName picks the first usable name attribute.
func (u UserProfile) DisplayName() string {
	for _, k := range []string{"name", "preferred_username", "login"} {
		if v := u.str(k); v != "" {
			return v
		}
	}
	return "User"
}
