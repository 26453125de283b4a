package ssh

import "time"

// SessionState is a step of session establishment.
type SessionState string

const (
	StateUnconnected    SessionState = "unconnected"
	StateConnecting     SessionState = "connecting"
	StateAuthenticating SessionState = "authenticating"
	StateReady          SessionState = "ready"
	StateFailed         SessionState = "failed"
	StateClosed         SessionState = "closed"
)

func (s SessionState) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition can leave s.
func (s SessionState) IsTerminal() bool {
	return s == StateFailed || s == StateClosed
}

// StateTransition records a state change.
type StateTransition struct {
	From      SessionState `json:"from"`
	To        SessionState `json:"to"`
	Timestamp time.Time    `json:"timestamp"`
}

// StateCallback is called on every transition of a session being established.
type StateCallback func(from, to SessionState)

// stateMachine tracks one establishment attempt. It is not safe for concurrent use:
// a session belongs to a single invocation.
type stateMachine struct {
	current     SessionState
	transitions []StateTransition
	callbacks   []StateCallback
}

func newStateMachine(callbacks []StateCallback) *stateMachine {
	return &stateMachine{
		current:   StateUnconnected,
		callbacks: callbacks,
	}
}

func (m *stateMachine) set(next SessionState) {
	if m.current == next || m.current.IsTerminal() {
		return
	}

	from := m.current
	m.current = next
	m.transitions = append(m.transitions, StateTransition{From: from, To: next, Timestamp: time.Now()})

	for _, cb := range m.callbacks {
		cb(from, next)
	}
}
