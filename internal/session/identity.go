package session

// State enumerates the two states of the session state machine.
type State string

const (
	// StateAnonymous means no user is signed in.
	StateAnonymous State = "anonymous"
	// StateAuthenticated means both the user id and the display name are present.
	StateAuthenticated State = "authenticated"
)

// Identity is the currently signed-in user. UserID and UserName are either
// both set or both nil.
type Identity struct {
	UserID   *int64
	UserName *string
}

// Anonymous returns the identity with neither field present.
func Anonymous() Identity {
	return Identity{}
}

// Authenticated returns the identity for (id, name).
func Authenticated(id int64, name string) Identity {
	return Identity{UserID: &id, UserName: &name}
}

// State reports the state machine position of the identity. A missing user
// id means anonymous regardless of the name field.
func (i Identity) State() State {
	if i.UserID == nil {
		return StateAnonymous
	}
	return StateAuthenticated
}

// IsAuthenticated reports whether a user id is present.
func (i Identity) IsAuthenticated() bool {
	return i.State() == StateAuthenticated
}

// ID returns the user id and whether it is present.
func (i Identity) ID() (int64, bool) {
	if i.UserID == nil {
		return 0, false
	}
	return *i.UserID, true
}

// Name returns the display name, or "" when absent.
func (i Identity) Name() string {
	if i.UserName == nil {
		return ""
	}
	return *i.UserName
}
