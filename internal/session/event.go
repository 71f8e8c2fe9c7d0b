package session

// Event is a session transition input.
type Event interface {
	eventName() string
}

// LoginEvent signs in (ID, Name), replacing any current identity.
type LoginEvent struct {
	ID   int64
	Name string
}

func (LoginEvent) eventName() string { return "login" }

// LogoutEvent clears the identity.
type LogoutEvent struct{}

func (LogoutEvent) eventName() string { return "logout" }

// EventName returns the metric/log label of ev.
func EventName(ev Event) string {
	if ev == nil {
		return ""
	}
	return ev.eventName()
}

// Apply is the pure transition function of the session state machine:
//
//	Anonymous     --login(id,name)-->  Authenticated
//	Authenticated --login(id2,name2)-> Authenticated
//	*             --logout-->          Anonymous
//
// Unknown events leave the identity unchanged. The returned identity never
// shares pointers with cur.
func Apply(cur Identity, ev Event) Identity {
	switch e := ev.(type) {
	case LoginEvent:
		return Authenticated(e.ID, e.Name)
	case *LoginEvent:
		if e == nil {
			return clone(cur)
		}
		return Authenticated(e.ID, e.Name)
	case LogoutEvent, *LogoutEvent:
		return Anonymous()
	default:
		return clone(cur)
	}
}

func clone(id Identity) Identity {
	var out Identity
	if id.UserID != nil {
		v := *id.UserID
		out.UserID = &v
	}
	if id.UserName != nil {
		v := *id.UserName
		out.UserName = &v
	}
	return out
}
