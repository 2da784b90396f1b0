package events

const (
	// KindTurnStarted identifies an opened turn.
	KindTurnStarted Kind = "turn.started"
	// KindTurnEnded identifies a closed turn.
	KindTurnEnded Kind = "turn.ended"
)

// TurnStarted marks an opened turn for the given owner.
type TurnStarted struct {
	Base
	TurnID string
	Owner  string
}

// NewTurnStarted creates a turn started event.
func NewTurnStarted(turnID, owner string) TurnStarted {
	return TurnStarted{Base: newBase(KindTurnStarted), TurnID: turnID, Owner: owner}
}

// TurnEnded marks a closed turn.
type TurnEnded struct {
	Base
	TurnID string
	Owner  string
}

// NewTurnEnded creates a turn ended event.
func NewTurnEnded(turnID, owner string) TurnEnded {
	return TurnEnded{Base: newBase(KindTurnEnded), TurnID: turnID, Owner: owner}
}
