package eventstream

import (
	"time"

	"decisionctl/internal/logging"
	"decisionctl/internal/types"
)

const DefaultLogLimit = 64

// Log is the notification log for the current turn. It also remembers the
// most recent unresolved conflict, which outlives turn changes.
type Log struct {
	limit   int
	reducer TurnReducer
	entries []Entry
	seq     int
	pending *Entry
	logger  logging.Logger
	now     func() time.Time
}

func NewLog(limit int, logger logging.Logger) *Log {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Log{limit: limit, logger: logger, now: time.Now}
}

// Apply folds one event into the log. It returns whether the visible log
// changed and whether it was cleared for a new turn.
func (l *Log) Apply(event types.PipelineEvent) (changed bool, cleared bool) {
	if event.EventType == types.EventConnected {
		return false, false
	}
	entry, err := Present(event)
	if err != nil {
		l.logger.Warn("event payload dropped",
			logging.F("type", string(event.EventType)),
			logging.F("turn", event.TurnID),
			logging.Err(err),
		)
		return false, false
	}
	if l.reducer.Advance(event) {
		l.entries = l.entries[:0]
		cleared = true
	}
	l.seq++
	entry.Seq = l.seq
	entry.At = l.now()

	switch event.EventType {
	case types.EventConflictDetected:
		// Only the newest conflict is reviewable.
		l.settlePending()
		pending := entry
		l.pending = &pending
	case types.EventConflictResolved:
		l.settlePending()
	}

	l.entries = append(l.entries, entry)
	if over := len(l.entries) - l.limit; over > 0 {
		l.entries = append(l.entries[:0:0], l.entries[over:]...)
	}
	return true, cleared
}

func (l *Log) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

func (l *Log) Len() int {
	return len(l.entries)
}

func (l *Log) CurrentTurn() string {
	return l.reducer.Current()
}

// PendingConflict returns the unresolved conflict entry, if any.
func (l *Log) PendingConflict() (Entry, bool) {
	if l.pending == nil {
		return Entry{}, false
	}
	return *l.pending, true
}

// DismissConflict closes the pending conflict without resolving it.
func (l *Log) DismissConflict() bool {
	return l.settlePending()
}

// ResolveConflict clears the pending conflict after a successful disposition.
func (l *Log) ResolveConflict() bool {
	return l.settlePending()
}

func (l *Log) settlePending() bool {
	if l.pending == nil {
		return false
	}
	seq := l.pending.Seq
	l.pending = nil
	for i := range l.entries {
		if l.entries[i].Seq == seq {
			l.entries[i].Active = false
		}
	}
	return true
}

func (l *Log) Reset() {
	l.entries = l.entries[:0]
	l.pending = nil
	l.reducer.Reset()
}
