package app

import (
	"sync"
	"time"
)

// LogLevel grades engine log events for the consumer
type LogLevel string

const (
	LevelInfo     LogLevel = "info"
	LevelWarning  LogLevel = "warning"
	LevelError    LogLevel = "error"
	LevelSuccess  LogLevel = "success"
	LevelDownload LogLevel = "download"
)

// Event is one entry in the engine's event stream: either a log line or a
// progress snapshot. Workers never touch consumer state; they emit events
// and a single consumer drains them.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Level     LogLevel  `json:"level,omitempty"`
	Message   string    `json:"message,omitempty"`
	Progress  *Snapshot `json:"progress,omitempty"`
}

// EventBus fans engine events out to subscribers. Emission never blocks: a
// subscriber that stops draining loses events rather than stalling workers.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates an event bus
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a buffered event channel. The caller must Unsubscribe
// when done.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 256)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscription channel
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers an event to every subscriber without blocking
func (b *EventBus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Log publishes a log entry
func (b *EventBus) Log(level LogLevel, message string) {
	b.Publish(Event{Level: level, Message: message})
}

// Progress publishes a progress snapshot
func (b *EventBus) Progress(snap Snapshot) {
	b.Publish(Event{Progress: &snap})
}
