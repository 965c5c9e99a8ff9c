// internal/handler/event_bus.go
package handler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType names the events pushed to websocket subscribers
type EventType string

const (
	// EventLogEntry carries one new log entry
	EventLogEntry EventType = "log_entry"
	// EventConnectionLost signals that the reader loop died unexpectedly
	EventConnectionLost EventType = "connection_lost"
	// EventUpdateProgress carries updater download progress
	EventUpdateProgress EventType = "update_download_progress"
)

// Event is one unit of the outbound event stream
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventBus fans events out to websocket subscribers. Slow subscribers are
// skipped rather than allowed to stall the reader loop.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	events      chan Event
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string]chan Event),
		events:      make(chan Event, 1000),
		logger:      logger.With(zap.String("component", "event-bus")),
	}
}

// Start drains the central event channel and distributes to subscribers.
// Runs until the event channel is closed.
func (eb *EventBus) Start() {
	for event := range eb.events {
		eb.distribute(event)
	}
}

// Publish enqueues an event. Never blocks; when the bus is full the event
// is dropped with a warning.
func (eb *EventBus) Publish(eventType EventType, data interface{}) {
	event := Event{Type: eventType, Data: data, Timestamp: time.Now()}
	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event", zap.String("event_type", string(eventType)))
	}
}

// Subscribe registers a subscriber under the given id
func (eb *EventBus) Subscribe(id string) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subscriber := make(chan Event, 256)
	eb.subscribers[id] = subscriber
	return subscriber
}

// Unsubscribe removes a subscriber and closes its channel
func (eb *EventBus) Unsubscribe(id string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if subscriber, ok := eb.subscribers[id]; ok {
		delete(eb.subscribers, id)
		close(subscriber)
	}
}

func (eb *EventBus) distribute(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, subscriber := range eb.subscribers {
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
