package gate

import "strings"

// AllowList is a fixed, case-insensitive set of email addresses.
// It models a capability granted by configuration rather than by stored role.
type AllowList struct {
	emails map[string]struct{}
}

// NewAllowList builds an allow-list; blank entries are ignored.
func NewAllowList(emails ...string) *AllowList {
	a := &AllowList{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			a.emails[e] = struct{}{}
		}
	}
	return a
}

// Contains reports whether email is on the list.
func (a *AllowList) Contains(email string) bool {
	if a == nil {
		return false
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	_, ok := a.emails[email]
	return ok
}

// Len returns the number of distinct emails.
func (a *AllowList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.emails)
}
