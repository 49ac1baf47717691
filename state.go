package adminsession

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the position of the manager in its state machine.
type Phase uint8

const (
	// PhaseInitializing is the state before the first Bootstrap or Login.
	PhaseInitializing Phase = iota
	// PhaseAuthenticated means a token and identity are held in memory.
	PhaseAuthenticated
	// PhaseUnauthenticated means there is no session.
	PhaseUnauthenticated
)

// String implements the [fmt.Stringer] interface for Phase.
func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// MarshalText implements the [encoding.TextMarshaler] interface for Phase.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is a snapshot of the session as seen by the shell.
//
// Authenticated implies a non-empty Token, a non-nil Identity and a token
// that had not expired when it was last checked.
type State struct {
	Phase         Phase     `json:"phase"`
	Authenticated bool      `json:"authenticated"`
	Initializing  bool      `json:"initializing"`
	Token         string    `json:"-"`
	Identity      *Identity `json:"identity,omitempty"`

	// SessionID correlates logs and audit events of one restored or created
	// session.  It is not a credential and is never persisted.
	SessionID uuid.UUID `json:"session_id"`

	// ExpiresAt is zero when the token carries no readable expiry.
	ExpiresAt time.Time `json:"expires_at"`
}

func initialState() State {
	return State{Phase: PhaseInitializing, Initializing: true}
}

func unauthenticatedState() State {
	return State{Phase: PhaseUnauthenticated}
}

func authenticatedState(tok string, id Identity, exp time.Time) State {
	return State{
		Phase:         PhaseAuthenticated,
		Authenticated: true,
		Token:         tok,
		Identity:      &id,
		SessionID:     uuid.New(),
		ExpiresAt:     exp,
	}
}

// clone returns a copy that shares no pointers with s.
func (s State) clone() State {
	if s.Identity != nil {
		id := *s.Identity
		s.Identity = &id
	}

	return s
}
