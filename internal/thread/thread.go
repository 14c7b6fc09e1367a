// Package thread holds the conversational view of a story: user turns,
// assistant turns with sibling branches, and the state machine that governs
// sending, regenerating, editing and cancelling.
package thread

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/storynest/console/internal/logging"
)

// State is the state of a thread
type State int

const (
	StateEmpty State = iota
	StateActive
	StateGenerating
	StateEditing
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateActive:
		return "active"
	case StateGenerating:
		return "generating"
	case StateEditing:
		return "editing"
	default:
		return "unknown"
	}
}

// ErrInvalidTransition is returned when an operation is not allowed in the
// current state
var ErrInvalidTransition = errors.New("invalid thread transition")

// Token identifies one in-flight generation. The zero token is never issued.
type Token uint64

// Kind describes what a pending generation will do when it completes
type Kind int

const (
	KindSend Kind = iota
	KindRegenerate
	KindEdit
)

// Thread is a single story conversation. It is not safe for concurrent use;
// the UI update loop owns it.
type Thread struct {
	messages  []*Message
	state     State
	pending   Token
	kind      Kind
	nextToken Token
	editingID string

	now    func() time.Time
	newID  func() string
	logger *logging.Logger
}

// New creates an empty thread
func New() *Thread {
	return &Thread{
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logging.GetUILogger().WithField("model", "thread"),
	}
}

// State returns the current state
func (t *Thread) State() State {
	return t.state
}

// Generating reports whether a response is in flight
func (t *Thread) Generating() bool {
	return t.state == StateGenerating
}

// Pending returns the token of the in-flight generation and its kind
func (t *Thread) Pending() (Token, Kind) {
	return t.pending, t.kind
}

// EditingID returns the message being edited, or ""
func (t *Thread) EditingID() string {
	return t.editingID
}

// Messages returns the messages in arrival order
func (t *Thread) Messages() []*Message {
	out := make([]*Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages
func (t *Thread) Len() int {
	return len(t.messages)
}

// Message returns the message with id, or nil
func (t *Thread) Message(id string) *Message {
	for _, m := range t.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Last returns the newest message, or nil
func (t *Thread) Last() *Message {
	if len(t.messages) == 0 {
		return nil
	}
	return t.messages[len(t.messages)-1]
}

// LastAssistant returns the newest assistant message, or nil
func (t *Thread) LastAssistant() *Message {
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].Role == RoleAssistant {
			return t.messages[i]
		}
	}
	return nil
}

// Reset discards every message and any pending generation
func (t *Thread) Reset() {
	t.messages = nil
	t.pending = 0
	t.editingID = ""
	t.transition(StateEmpty, "reset")
}

// Send appends a user turn and starts a generation. Allowed from empty and
// active.
func (t *Thread) Send(text string) (Token, error) {
	if t.state != StateEmpty && t.state != StateActive {
		return 0, fmt.Errorf("send while %s: %w", t.state, ErrInvalidTransition)
	}
	if text == "" {
		return 0, fmt.Errorf("cannot send an empty message")
	}

	t.messages = append(t.messages, t.userMessage(text))
	if t.state == StateEmpty {
		t.transition(StateActive, "first message")
	}
	return t.begin(KindSend, "send"), nil
}

// Regenerate starts a new sibling for the last assistant turn. Allowed only
// from active when the newest message is an assistant turn.
func (t *Thread) Regenerate() (Token, error) {
	if t.state != StateActive {
		return 0, fmt.Errorf("regenerate while %s: %w", t.state, ErrInvalidTransition)
	}
	if last := t.Last(); last == nil || last.Role != RoleAssistant {
		return 0, fmt.Errorf("nothing to regenerate: %w", ErrInvalidTransition)
	}
	return t.begin(KindRegenerate, "regenerate"), nil
}

// Resume starts a generation for an unanswered user turn, used after a
// failed reply. Allowed only from active when the newest message is a user
// turn.
func (t *Thread) Resume() (Token, error) {
	if t.state != StateActive {
		return 0, fmt.Errorf("resume while %s: %w", t.state, ErrInvalidTransition)
	}
	if last := t.Last(); last == nil || last.Role != RoleUser {
		return 0, fmt.Errorf("nothing to resume: %w", ErrInvalidTransition)
	}
	return t.begin(KindSend, "resume"), nil
}

// BeginEdit starts revising a user turn
func (t *Thread) BeginEdit(messageID string) error {
	if t.state != StateActive {
		return fmt.Errorf("edit while %s: %w", t.state, ErrInvalidTransition)
	}
	m := t.Message(messageID)
	if m == nil || m.Role != RoleUser {
		return fmt.Errorf("message %q is not a user turn: %w", messageID, ErrInvalidTransition)
	}
	t.editingID = messageID
	t.transition(StateEditing, "edit requested")
	return nil
}

// CancelEdit abandons the revision
func (t *Thread) CancelEdit() error {
	if t.state != StateEditing {
		return fmt.Errorf("cancel edit while %s: %w", t.state, ErrInvalidTransition)
	}
	t.editingID = ""
	t.transition(StateActive, "edit cancelled")
	return nil
}

// SubmitEdit replaces the edited user turn, drops every later turn and
// starts a generation
func (t *Thread) SubmitEdit(text string) (Token, error) {
	if t.state != StateEditing {
		return 0, fmt.Errorf("submit edit while %s: %w", t.state, ErrInvalidTransition)
	}
	if text == "" {
		return 0, fmt.Errorf("cannot submit an empty message")
	}

	for i, m := range t.messages {
		if m.ID == t.editingID {
			t.messages = append(t.messages[:i], t.userMessage(text))
			break
		}
	}
	t.editingID = ""
	t.transition(StateActive, "edit submitted")
	return t.begin(KindEdit, "edit"), nil
}

// Cancel abandons the in-flight generation. A later Complete with its token
// is discarded.
func (t *Thread) Cancel() error {
	if t.state != StateGenerating {
		return fmt.Errorf("cancel while %s: %w", t.state, ErrInvalidTransition)
	}
	t.pending = 0
	t.transition(StateActive, "cancelled")
	return nil
}

// Complete applies a finished generation. It returns false, leaving the
// thread untouched, when token is not the pending one.
func (t *Thread) Complete(token Token, v Variant) bool {
	if token == 0 || token != t.pending || t.state != StateGenerating {
		t.logger.Debug("Discarding stale generation", "token", token, "pending", t.pending)
		return false
	}

	if v.ID == "" {
		v.ID = t.newID()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = t.now()
	}

	if last := t.Last(); t.kind == KindRegenerate && last != nil && last.Role == RoleAssistant {
		last.addVariant(v)
	} else {
		m := &Message{ID: t.newID(), Role: RoleAssistant}
		m.addVariant(v)
		t.messages = append(t.messages, m)
	}

	t.pending = 0
	t.transition(StateActive, "generation complete")
	return true
}

// Fail ends the pending generation without a reply. Stale tokens are
// ignored.
func (t *Thread) Fail(token Token) bool {
	if token == 0 || token != t.pending || t.state != StateGenerating {
		return false
	}
	t.pending = 0
	t.transition(StateActive, "generation failed")
	return true
}

// AppendAssistant adds an assistant turn outside any generation, used when
// restoring a stored story
func (t *Thread) AppendAssistant(v Variant) error {
	if t.state == StateGenerating || t.state == StateEditing {
		return fmt.Errorf("append while %s: %w", t.state, ErrInvalidTransition)
	}
	if v.ID == "" {
		v.ID = t.newID()
	}
	m := &Message{ID: t.newID(), Role: RoleAssistant}
	m.addVariant(v)
	t.messages = append(t.messages, m)
	if t.state == StateEmpty {
		t.transition(StateActive, "restored")
	}
	return nil
}

func (t *Thread) userMessage(text string) *Message {
	m := &Message{ID: t.newID(), Role: RoleUser}
	m.addVariant(Variant{ID: t.newID(), Parts: []Part{TextPart(text)}, CreatedAt: t.now()})
	return m
}

func (t *Thread) begin(kind Kind, reason string) Token {
	t.nextToken++
	t.pending = t.nextToken
	t.kind = kind
	t.transition(StateGenerating, reason)
	return t.pending
}

func (t *Thread) transition(to State, reason string) {
	if t.state != to {
		t.logger.LogUIStateChange(t.state.String(), to.String(), reason)
	}
	t.state = to
}
