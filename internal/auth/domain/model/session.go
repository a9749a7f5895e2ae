package model

// State is the lifecycle position of a session.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "uninitialized"
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is a point-in-time view of who is signed in.
// CurrentUser is non-nil exactly when the state is authenticated.
type Session struct {
	CurrentUser *AuthUser `json:"currentUser"`
	Loading     bool      `json:"loading"`
	Initialized bool      `json:"initialized"`
	Error       string    `json:"error,omitempty"`
	State       State     `json:"state"`
}

// IsAuthenticated reports whether a user is signed in.
func (s Session) IsAuthenticated() bool {
	return s.CurrentUser != nil
}
