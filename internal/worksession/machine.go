package worksession

import (
	"errors"
	"strings"
	"time"

	"decisionctl/internal/types"
)

type State int

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}

const (
	welcomePrefix  = "Started work session for:"
	FailureMessage = "Sorry, something went wrong sending that message. Please try again."
)

var (
	ErrNoProject       = errors.New("select a project first")
	ErrEmptyTask       = errors.New("task description is required")
	ErrEmptyMessage    = errors.New("message is required")
	ErrNoActiveSession = errors.New("no active work session")
	ErrSessionActive   = errors.New("a work session is already active")
	ErrBusy            = errors.New("a request is already in flight")
)

// Machine tracks one project's work session. Network calls happen outside:
// callers Begin an operation, issue the request, then Complete or Fail it.
// Ending is optimistic: End returns the machine to idle before the request
// is sent and is never rolled back.
type Machine struct {
	state    State
	session  types.WorkSession
	messages []types.Message
	starting bool
	pending  bool
	ending   string
	now      func() time.Time
}

func New() *Machine {
	return &Machine{now: time.Now}
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Active() bool {
	return m.state == StateActive
}

func (m *Machine) Session() (types.WorkSession, bool) {
	if m.state != StateActive {
		return types.WorkSession{}, false
	}
	return m.session, true
}

func (m *Machine) SessionID() string {
	if m.state != StateActive {
		return ""
	}
	return m.session.ID
}

func (m *Machine) Messages() []types.Message {
	return append([]types.Message(nil), m.messages...)
}

// Pending reports a message send in flight.
func (m *Machine) Pending() bool {
	return m.pending
}

func (m *Machine) Starting() bool {
	return m.starting
}

// Ending reports the id of a session whose end request is still in flight.
func (m *Machine) Ending() string {
	return m.ending
}

func (m *Machine) BeginStart(taskDescription string, projectSelected bool) (string, error) {
	task := strings.TrimSpace(taskDescription)
	if !projectSelected {
		return "", ErrNoProject
	}
	if task == "" {
		return "", ErrEmptyTask
	}
	if m.state == StateActive {
		return "", ErrSessionActive
	}
	if m.starting {
		return "", ErrBusy
	}
	m.starting = true
	return task, nil
}

func (m *Machine) CompleteStart(sessionID, taskDescription string) {
	m.starting = false
	m.state = StateActive
	m.pending = false
	m.session = types.WorkSession{
		ID:              sessionID,
		TaskDescription: taskDescription,
		Status:          "active",
		CreatedAt:       m.now(),
	}
	m.messages = []types.Message{{
		Role:      types.MessageRoleSystem,
		Content:   welcomePrefix + " " + taskDescription,
		CreatedAt: m.now(),
	}}
}

func (m *Machine) FailStart() {
	m.starting = false
}

func (m *Machine) BeginSend(text string) (types.Message, error) {
	text = strings.TrimSpace(text)
	if m.state != StateActive {
		return types.Message{}, ErrNoActiveSession
	}
	if text == "" {
		return types.Message{}, ErrEmptyMessage
	}
	if m.pending {
		return types.Message{}, ErrBusy
	}
	msg := types.Message{Role: types.MessageRoleUser, Content: text, CreatedAt: m.now()}
	m.messages = append(m.messages, msg)
	m.pending = true
	return msg, nil
}

// CompleteSend appends the reply. Replies for a session that is no longer
// current are ignored and reported as false.
func (m *Machine) CompleteSend(sessionID, reply string, citedIDs []string) bool {
	if !m.current(sessionID) {
		return false
	}
	m.pending = false
	m.messages = append(m.messages, types.Message{
		Role:      types.MessageRoleAssistant,
		Content:   reply,
		CitedIDs:  append([]string(nil), citedIDs...),
		CreatedAt: m.now(),
	})
	return true
}

func (m *Machine) FailSend(sessionID string) bool {
	if !m.current(sessionID) {
		return false
	}
	m.pending = false
	m.messages = append(m.messages, types.Message{
		Role:      types.MessageRoleAssistant,
		Content:   FailureMessage,
		CreatedAt: m.now(),
	})
	return true
}

// End moves to idle immediately and returns the session id to end.
func (m *Machine) End() (string, error) {
	if m.state != StateActive {
		return "", ErrNoActiveSession
	}
	id := m.session.ID
	m.state = StateIdle
	m.session = types.WorkSession{}
	m.messages = nil
	m.pending = false
	m.ending = id
	return id, nil
}

func (m *Machine) CompleteEnd(sessionID string) bool {
	return m.settleEnd(sessionID)
}

// FailEnd only clears the in-flight marker; the machine stays idle.
func (m *Machine) FailEnd(sessionID string) bool {
	return m.settleEnd(sessionID)
}

func (m *Machine) settleEnd(sessionID string) bool {
	if m.ending == "" || m.ending != sessionID {
		return false
	}
	m.ending = ""
	return true
}

// Restore adopts a session found on the backend and replays its history. The
// backend's own welcome message is dropped from the replay.
func (m *Machine) Restore(session types.WorkSession, history []types.Message) {
	m.state = StateActive
	m.session = session
	m.starting = false
	m.pending = false
	m.messages = make([]types.Message, 0, len(history))
	for i, msg := range history {
		if i == 0 && isWelcome(msg) {
			continue
		}
		m.messages = append(m.messages, msg)
	}
}

func (m *Machine) Reset() {
	m.state = StateIdle
	m.session = types.WorkSession{}
	m.messages = nil
	m.starting = false
	m.pending = false
	m.ending = ""
}

func (m *Machine) current(sessionID string) bool {
	return m.state == StateActive && m.session.ID == sessionID
}

func isWelcome(msg types.Message) bool {
	return msg.Role == types.MessageRoleAssistant && strings.HasPrefix(strings.TrimSpace(msg.Content), welcomePrefix)
}
