// Package sessions maintains the client-side copy of the service's session:
// the ordered message log, token usage, and session replacement.
package sessions

import (
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/otolabs/oto-core/core/protocol"
)

// Store folds streamed message deltas into the same canonical message log a
// bulk history snapshot carries, so a live session and a replayed one are
// indistinguishable.
type Store struct {
	mu      sync.Mutex
	session protocol.SessionSnapshot

	// open is the message currently being streamed, not yet in the log.
	open *protocol.Message
	// pending holds a replacement that arrived mid-message. It is applied
	// when the open message closes so observers never see a torn log.
	pending *protocol.SessionSnapshot
}

func NewStore() *Store {
	return &Store{}
}

// Bind records the session identity from the connection acknowledgement. A
// resumed connection may be acknowledged under a different session; Bind
// adopts the new identity and reports the rebind so callers can notify
// observers.
func (s *Store) Bind(sessionID string) (rebound bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sessionID == "" || s.session.ID == sessionID {
		return false
	}
	rebound = s.session.ID != ""
	s.session.ID = sessionID
	if !rebound {
		s.session.CreatedAt = time.Now()
	}
	s.session.UpdatedAt = time.Now()
	return rebound
}

// ID returns the bound session identifier.
func (s *Store) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.ID
}

// AppendDelta folds a streamed content delta into the open message. A delta
// with a different role implicitly closes the open message first. Adjacent
// text blocks merge so the folded message matches its bulk-serialized form.
func (s *Store) AppendDelta(delta protocol.MessageDeltaPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open != nil && s.open.Role != delta.Role {
		s.closeOpenLocked()
	}
	if s.open == nil {
		s.open = &protocol.Message{Role: delta.Role}
	}

	for _, block := range delta.Content {
		s.open.Content = appendMerged(s.open.Content, block)
	}
	if delta.Usage != nil {
		s.session.Usage = *delta.Usage
	}
	s.session.UpdatedAt = time.Now()
}

// appendMerged appends a block, coalescing consecutive text blocks.
func appendMerged(content []protocol.ContentBlock, block protocol.ContentBlock) []protocol.ContentBlock {
	if text, ok := block.(protocol.TextBlock); ok && len(content) > 0 {
		if last, ok := content[len(content)-1].(protocol.TextBlock); ok {
			last.Text += text.Text
			content[len(content)-1] = last
			return content
		}
	}
	return append(content, block)
}

// CloseMessage commits the open message to the log and applies any queued
// session replacement. Closing with nothing open is a no-op.
func (s *Store) CloseMessage() (protocol.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open == nil {
		return protocol.Message{}, false
	}
	message := s.closeOpenLocked()

	// Queued replacements apply only on the explicit close. A role-change
	// close happens mid-stream, and the transcript side swaps at the same
	// explicit trigger; applying earlier would make the two views diverge.
	if s.pending != nil {
		s.session = *s.pending
		s.pending = nil
	}
	return message, true
}

func (s *Store) closeOpenLocked() protocol.Message {
	message := *s.open
	s.open = nil
	s.session.Messages = append(s.session.Messages, message)
	s.session.UpdatedAt = time.Now()
	return message
}

// Replace swaps in a full session snapshot. While a message is streaming the
// swap is deferred until that message closes; it reports whether the swap
// happened immediately.
func (s *Store) Replace(snapshot protocol.SessionSnapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open != nil {
		s.pending = &snapshot
		return false
	}
	s.session = snapshot
	return true
}

// Load applies a full snapshot unconditionally, discarding any open message
// and queued replacement. Used for bulk history loads.
func (s *Store) Load(snapshot protocol.SessionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = snapshot
	s.open = nil
	s.pending = nil
}

// Current returns a deep copy of the committed session. The open message is
// excluded until it closes.
func (s *Store) Current() protocol.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshot protocol.SessionSnapshot
	// Deep copy so callers can hold the snapshot across later mutations.
	if err := copier.CopyWithOption(&snapshot, &s.session, copier.Option{DeepCopy: true}); err != nil {
		snapshot = s.session
	}
	return snapshot
}

// Usage returns the latest token accounting.
func (s *Store) Usage() protocol.TokenUsage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Usage
}

// Open returns a copy of the message currently streaming, if any.
func (s *Store) Open() (protocol.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil {
		return protocol.Message{}, false
	}
	open := *s.open
	open.Content = append([]protocol.ContentBlock(nil), s.open.Content...)
	return open, true
}

// Reset drops all session state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = protocol.SessionSnapshot{}
	s.open = nil
	s.pending = nil
}
