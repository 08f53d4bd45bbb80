package eventstream

import "decisionctl/internal/types"

// Advance folds one event into the current turn id. clear reports that a
// different turn has started and the visible log must be emptied first. An
// event without a turn id never changes the turn.
func Advance(current string, event types.PipelineEvent) (next string, clear bool) {
	if event.TurnID == "" {
		return current, false
	}
	if current != "" && current != event.TurnID {
		return event.TurnID, true
	}
	return event.TurnID, false
}

type TurnReducer struct {
	current string
}

func (r *TurnReducer) Advance(event types.PipelineEvent) bool {
	next, clear := Advance(r.current, event)
	r.current = next
	return clear
}

func (r *TurnReducer) Current() string {
	return r.current
}

func (r *TurnReducer) Reset() {
	r.current = ""
}
