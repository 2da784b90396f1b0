// Package turns tracks who currently holds the conversational floor and
// gates outbound traffic while the assistant is speaking.
package turns

import (
	"fmt"
	"sync"
	"time"
)

// Owner identifies which side of the conversation holds a turn.
type Owner string

const (
	OwnerUser      Owner = "user"
	OwnerAssistant Owner = "assistant"
)

// Turn is a single span of floor ownership as reported by the service.
type Turn struct {
	ID        string
	Owner     Owner
	StartedAt time.Time
	EndedAt   time.Time
}

// Ended reports whether the turn has been closed.
func (t Turn) Ended() bool {
	return !t.EndedAt.IsZero()
}

// ViolationError signals an outbound send attempted while the assistant
// holds the floor.
type ViolationError struct {
	TurnID string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("turn violation: assistant holds the floor (turn %s)", e.TurnID)
}

// Tracker mirrors the service's turn markers. It never infers turns on its
// own; Begin and End are driven purely by turn_start/turn_end events.
type Tracker struct {
	mu      sync.Mutex
	active  *Turn
	history []Turn

	respect bool
}

// NewTracker builds a tracker. With respect disabled CanSend always allows
// and Gate never rejects, but ownership is still mirrored for observers.
func NewTracker(respect bool) *Tracker {
	return &Tracker{respect: respect}
}

// Begin records the start of a turn. Beginning the turn that is already
// active is a no-op; beginning a different turn implicitly ends the active
// one, mirroring a service that dropped the turn_end marker.
func (t *Tracker) Begin(turnID string, owner Owner) Turn {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != nil {
		if t.active.ID == turnID {
			return *t.active
		}
		t.endActiveLocked()
	}

	t.active = &Turn{ID: turnID, Owner: owner, StartedAt: time.Now()}
	return *t.active
}

// End closes the named turn. Ending an unknown or already-ended turn is a
// no-op so replayed markers stay harmless.
func (t *Tracker) End(turnID string) (Turn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active == nil || t.active.ID != turnID {
		return Turn{}, false
	}
	turn := t.endActiveLocked()
	return turn, true
}

func (t *Tracker) endActiveLocked() Turn {
	t.active.EndedAt = time.Now()
	turn := *t.active
	t.history = append(t.history, turn)
	t.active = nil
	return turn
}

// Active returns the turn currently holding the floor, if any.
func (t *Tracker) Active() (Turn, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return Turn{}, false
	}
	return *t.active, true
}

// CanSend reports whether the user side may transmit right now.
func (t *Tracker) CanSend() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.gatedLocked()
}

// Gate returns a ViolationError when sending is currently disallowed.
func (t *Tracker) Gate() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gatedLocked() {
		return &ViolationError{TurnID: t.active.ID}
	}
	return nil
}

func (t *Tracker) gatedLocked() bool {
	return t.respect && t.active != nil && t.active.Owner == OwnerAssistant
}

// Reset drops all turn state, for session replacement and reconnects.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = nil
	t.history = nil
}

// History returns a copy of the closed turns in start order.
func (t *Tracker) History() []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()
	history := make([]Turn, len(t.history))
	copy(history, t.history)
	return history
}
