// Package sse streams catalog events to plain HTTP clients as
// Server-Sent Events.
package sse

import (
	"time"

	"github.com/libraryapp/library-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventConnected is sent once when a stream opens.
	EventConnected EventType = "connected"
	// EventBookAdded carries a newly created book with its author.
	EventBookAdded EventType = "book.added"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event is the JSON body of one SSE message.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// BookAddedEventData is the payload of a book.added event.
type BookAddedEventData struct {
	Book *domain.PopulatedBook `json:"book"`
}

// NewBookAddedEvent wraps a newly added book.
func NewBookAddedEvent(book *domain.PopulatedBook) Event {
	return Event{
		Type:      EventBookAdded,
		Data:      BookAddedEventData{Book: book},
		Timestamp: time.Now(),
	}
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
	}
}
