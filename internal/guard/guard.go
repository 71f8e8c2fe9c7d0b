// Package guard decides whether a navigation may proceed for the current
// identity or must be sent to the login route.
package guard

import "github.com/drichardson-tmp/workout-tracker/internal/session"

// DefaultLoginPath is the guard-exempt login route.
const DefaultLoginPath = "/login"

// Decision is the outcome of a navigation check. A zero Decision allows the
// navigation; a non-empty Redirect names the path to navigate to instead.
type Decision struct {
	Redirect string
}

// Allow is the decision letting the navigation proceed.
var Allow = Decision{}

// Allowed reports whether the navigation may proceed.
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

// Label returns "allow" or "redirect".
func (d Decision) Label() string {
	if d.Allowed() {
		return "allow"
	}
	return "redirect"
}

// Decide is the navigation predicate. The login path itself is always
// allowed, compared by exact string match. Any other target is allowed only
// when id carries a user id. An empty loginPath means DefaultLoginPath.
func Decide(loginPath, target string, id session.Identity) Decision {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	if target == loginPath {
		return Allow
	}
	if !id.IsAuthenticated() {
		return Decision{Redirect: loginPath}
	}
	return Allow
}

// BeforeNavigate binds Decide to a store. The returned hook reads the store
// on every call, so logins and logouts apply to the next navigation.
func BeforeNavigate(store *session.Store, loginPath string) func(target string) Decision {
	return func(target string) Decision {
		if store == nil {
			return Decide(loginPath, target, session.Anonymous())
		}
		return Decide(loginPath, target, *store.Read())
	}
}
