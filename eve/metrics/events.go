// Package metrics provides timing hooks for the fixpoint driver, adapted
// from annotations.Event/Collector — a leaner event set, since a fixpoint
// round has far fewer moving parts than a query plan.
package metrics

import (
	"sync"
	"time"
)

// Event names the fixpoint driver emits.
const (
	RoundBegin      = "round/begin"
	RoundComplete   = "round/complete"
	BlockExecuted   = "block/executed"
	CommitApplied   = "commit/applied"
	Divergence      = "fixpoint/diverged"
	RemoteSuspended = "remote/suspended"
	RemoteResumed   = "remote/resumed"
)

// Event is a single timed occurrence during a fixpoint.
type Event struct {
	Name    string
	Start   time.Time
	End     time.Time
	Latency time.Duration
	Data    map[string]interface{}
}

// Handler processes events as they occur.
type Handler func(event Event)

// Collector accumulates events during an evaluation's lifetime.
type Collector struct {
	mu      sync.Mutex
	enabled bool
	handler Handler
	events  []Event
}

// NewCollector returns a collector that forwards to handler. A nil handler
// disables collection entirely (events are dropped, not buffered), matching
// annotations.Collector's "enabled = handler != nil" convention.
func NewCollector(handler Handler) *Collector {
	return &Collector{enabled: handler != nil, handler: handler}
}

// Add records event, appending to the in-memory history and forwarding to
// the handler (outside the lock, as annotations.Collector does, so a slow
// or reentrant handler can't deadlock the collector).
func (c *Collector) Add(event Event) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()

	if c.handler != nil {
		c.handler(event)
	}
}

// AddTiming records an event spanning [start, now).
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	if !c.enabled {
		return
	}
	end := time.Now()
	c.Add(Event{Name: name, Start: start, End: end, Latency: end.Sub(start), Data: data})
}

// Events returns a copy of every event recorded so far.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Reset clears recorded history without disabling the collector.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
