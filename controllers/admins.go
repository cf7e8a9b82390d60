package controllers

import "strings"

// Admins is the set of usernames allowed to delete any post.
type Admins map[string]struct{}

// NewAdmins builds the set from configured names, ignoring case and blanks.
func NewAdmins(names []string) Admins {
	a := make(Admins, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			a[n] = struct{}{}
		}
	}
	return a
}

// Has reports whether username is an admin.
func (a Admins) Has(username string) bool {
	if username == "" {
		return false
	}
	_, ok := a[strings.ToLower(username)]
	return ok
}
