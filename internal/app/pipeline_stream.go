package app

import (
	"decisionctl/internal/eventstream"
	"decisionctl/internal/types"
)

// PipelineStreamController feeds buffered push events into the notification
// log a bounded batch per tick.
type PipelineStreamController struct {
	events           <-chan types.PipelineEvent
	maxEventsPerTick int
	log              *eventstream.Log
}

type streamTick struct {
	changed bool
	cleared bool
	closed  bool
	// refreshLedger is set when an applied event reports stored or changed
	// records.
	refreshLedger bool
}

func NewPipelineStreamController(log *eventstream.Log, maxEventsPerTick int) *PipelineStreamController {
	return &PipelineStreamController{log: log, maxEventsPerTick: maxEventsPerTick}
}

func (c *PipelineStreamController) SetStream(ch <-chan types.PipelineEvent) {
	if c == nil {
		return
	}
	c.events = ch
}

func (c *PipelineStreamController) Reset() {
	if c == nil {
		return
	}
	c.events = nil
}

func (c *PipelineStreamController) Attached() bool {
	return c != nil && c.events != nil
}

func (c *PipelineStreamController) ConsumeTick() streamTick {
	var out streamTick
	if c == nil || c.events == nil || c.log == nil {
		return out
	}
	events, closed := eventstream.Drain(c.events, c.maxEventsPerTick)
	for _, event := range events {
		changed, cleared := c.log.Apply(event)
		out.changed = out.changed || changed
		out.cleared = out.cleared || cleared
		if reportsRecords(event) {
			out.refreshLedger = true
		}
	}
	if closed {
		c.events = nil
		out.closed = true
	}
	return out
}

func reportsRecords(event types.PipelineEvent) bool {
	switch event.EventType {
	case types.EventConflictResolved:
		return true
	case types.EventComplete, types.EventSessionComplete:
		var data types.CompleteData
		return event.DecodeData(&data) == nil && len(data.MemoryIDs) > 0
	}
	return false
}
