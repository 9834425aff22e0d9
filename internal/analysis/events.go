package analysis

import "calotrack/internal/logs"

// Outcome describes how an analysis job ended.
type Outcome string

const (
	// OutcomeCompleted means the backend returned a usable result.
	OutcomeCompleted Outcome = "completed"
	// OutcomeFallback means the backend call failed and the entry was
	// resolved with local approximate values.
	OutcomeFallback Outcome = "fallback"
	// OutcomeCancelled means the user deleted the entry before resolution.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeError means resolution itself failed; the entry is left in the
	// error state.
	OutcomeError Outcome = "error"
)

// Event is emitted exactly once per resolved or cancelled job. UI layers
// subscribe to these instead of global notification names. Comment carries
// the backend's character remark on a completed meal analysis, when present.
type Event struct {
	EntryID string    `json:"entryId"`
	Kind    logs.Kind `json:"kind"`
	Outcome Outcome   `json:"outcome"`
	Name    string    `json:"name,omitempty"`
	Comment string    `json:"comment,omitempty"`
}

// Subscribe returns a channel receiving future events. Slow subscribers
// drop events rather than blocking resolution.
func (c *Coordinator) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch
}

func (c *Coordinator) publish(ev Event) {
	c.mu.Lock()
	subs := append([]chan Event(nil), c.subs...)
	c.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
