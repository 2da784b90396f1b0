package events

const (
	// KindSessionReplaced identifies a wholesale session replacement.
	KindSessionReplaced Kind = "session.replaced"
	// KindSessionUpdated identifies an incremental session mutation.
	KindSessionUpdated Kind = "session.updated"
)

// SessionReplaced marks a wholesale replacement of the current session.
// Subscribers receive exactly one such event per replacement.
type SessionReplaced struct {
	Base
	SessionID string
}

// NewSessionReplaced creates a session replaced event.
func NewSessionReplaced(sessionID string) SessionReplaced {
	return SessionReplaced{Base: newBase(KindSessionReplaced), SessionID: sessionID}
}

// SessionUpdated marks an incremental mutation of the current session.
type SessionUpdated struct {
	Base
	SessionID string
}

// NewSessionUpdated creates a session updated event.
func NewSessionUpdated(sessionID string) SessionUpdated {
	return SessionUpdated{Base: newBase(KindSessionUpdated), SessionID: sessionID}
}
