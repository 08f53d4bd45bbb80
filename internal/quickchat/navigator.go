package quickchat

import (
	"errors"
	"strconv"
	"strings"

	"decisionctl/internal/types"
)

// FailureOutput is the turn output recorded when the backend call fails.
const FailureOutput = "Sorry, that update could not be processed. Please try again."

var (
	ErrNoProject = errors.New("select a project first")
	ErrEmptyText = errors.New("message is required")
)

// Validate checks a quick update before it is sent.
func Validate(text string, projectSelected bool) (string, error) {
	if !projectSelected {
		return "", ErrNoProject
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

// Navigator holds the project's stateless turns in send order. Turns are
// only ever appended; navigation moves the cursor and nothing else.
type Navigator struct {
	turns  []types.StatelessTurn
	cursor int
}

func (n *Navigator) Append(turn types.StatelessTurn) {
	n.turns = append(n.turns, turn)
	n.cursor = len(n.turns) - 1
}

func (n *Navigator) Len() int {
	return len(n.turns)
}

func (n *Navigator) Cursor() int {
	return n.cursor
}

func (n *Navigator) Current() (types.StatelessTurn, bool) {
	if len(n.turns) == 0 {
		return types.StatelessTurn{}, false
	}
	return n.turns[n.cursor], true
}

func (n *Navigator) CanPrev() bool {
	return n.cursor > 0
}

func (n *Navigator) CanNext() bool {
	return n.cursor < len(n.turns)-1
}

func (n *Navigator) Prev() bool {
	if !n.CanPrev() {
		return false
	}
	n.cursor--
	return true
}

func (n *Navigator) Next() bool {
	if !n.CanNext() {
		return false
	}
	n.cursor++
	return true
}

// Position renders "2/5", or "" when empty.
func (n *Navigator) Position() string {
	if len(n.turns) == 0 {
		return ""
	}
	return strconv.Itoa(n.cursor+1) + "/" + strconv.Itoa(len(n.turns))
}

func (n *Navigator) Reset() {
	n.turns = nil
	n.cursor = 0
}
