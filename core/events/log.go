package events

import (
	"sync"

	"prizepool/core/types"
)

// Record is a committed event tagged with its position in the log.
type Record struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Log keeps the most recent committed events in memory.
type Log struct {
	mu       sync.RWMutex
	capacity int
	next     uint64
	records  []Record
}

// NewLog returns a log retaining at most capacity records. Non-positive values
// fall back to 1024.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Log{capacity: capacity}
}

// Emit implements Emitter.
func (l *Log) Emit(evt Event) {
	if l == nil || evt == nil {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	attrs := make(map[string]string, len(payload.Attributes))
	for k, v := range payload.Attributes {
		attrs[k] = v
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	l.records = append(l.records, Record{Sequence: l.next, Type: payload.Type, Attributes: attrs})
	if overflow := len(l.records) - l.capacity; overflow > 0 {
		l.records = append([]Record(nil), l.records[overflow:]...)
	}
}

// Since returns up to limit records with a sequence greater than after,
// optionally filtered by event type.
func (l *Log) Since(after uint64, eventType string, limit int) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, 0)
	for _, rec := range l.records {
		if rec.Sequence <= after {
			continue
		}
		if eventType != "" && rec.Type != eventType {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Fanout forwards every event to each emitter in order.
type Fanout []Emitter

func (f Fanout) Emit(evt Event) {
	for _, emitter := range f {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}

// Static wraps an already materialised payload as an Event.
type Static struct {
	Payload *types.Event
}

func (s Static) EventType() string {
	if s.Payload == nil {
		return ""
	}
	return s.Payload.Type
}

func (s Static) Event() *types.Event { return s.Payload }
