// Package events holds the closed catalogue of events the client publishes.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	TypeSessionStarted  = "session.started"
	TypeSessionEnded    = "session.ended"
	TypeResourceCreated = "resource.created"
	TypeResourceUpdated = "resource.updated"
	TypeResourceDeleted = "resource.deleted"
)

// Types lists every event type in the catalogue
var Types = []string{
	TypeSessionStarted,
	TypeSessionEnded,
	TypeResourceCreated,
	TypeResourceUpdated,
	TypeResourceDeleted,
}

// Event is implemented by every catalogue entry. The unexported method keeps
// the set closed to this package.
type Event interface {
	GetEventID() string
	GetEventType() string
	GetAggregateID() string
	GetTimestamp() time.Time
	isEvent()
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	AggregateID string    `json:"aggregate_id"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetEventID() string      { return e.EventID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (BaseEvent) isEvent()                  {}

func newBase(eventType, aggregateID string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Timestamp:   timestamp,
	}
}

// EndReason says why a session ended
type EndReason string

const (
	ReasonLogout       EndReason = "logout"
	ReasonUnauthorized EndReason = "unauthorized"
)

// Session events

// SessionStarted is raised after a successful login or registration
type SessionStarted struct {
	BaseEvent
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// NewSessionStarted creates a SessionStarted event
func NewSessionStarted(userID int64, username string, timestamp time.Time) SessionStarted {
	return SessionStarted{
		BaseEvent: newBase(TypeSessionStarted, username, timestamp),
		UserID:    userID,
		Username:  username,
	}
}

// SessionEnded is raised when the session is torn down
type SessionEnded struct {
	BaseEvent
	UserID int64     `json:"user_id"`
	Reason EndReason `json:"reason"`
}

// NewSessionEnded creates a SessionEnded event
func NewSessionEnded(userID int64, username string, reason EndReason, timestamp time.Time) SessionEnded {
	return SessionEnded{
		BaseEvent: newBase(TypeSessionEnded, username, timestamp),
		UserID:    userID,
		Reason:    reason,
	}
}

// Resource events

// ResourceCreated is raised after the API accepted a create
type ResourceCreated struct {
	BaseEvent
	Kind       string          `json:"kind"`
	ResourceID string          `json:"resource_id"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// NewResourceCreated creates a ResourceCreated event
func NewResourceCreated(kind, resourceID string, body json.RawMessage, timestamp time.Time) ResourceCreated {
	return ResourceCreated{
		BaseEvent:  newBase(TypeResourceCreated, resourceID, timestamp),
		Kind:       kind,
		ResourceID: resourceID,
		Body:       body,
	}
}

// ResourceUpdated carries the updated body so other views can reconcile
// without refetching.
type ResourceUpdated struct {
	BaseEvent
	Kind       string          `json:"kind"`
	ResourceID string          `json:"resource_id"`
	Body       json.RawMessage `json:"body"`
}

// NewResourceUpdated creates a ResourceUpdated event
func NewResourceUpdated(kind, resourceID string, body json.RawMessage, timestamp time.Time) ResourceUpdated {
	return ResourceUpdated{
		BaseEvent:  newBase(TypeResourceUpdated, resourceID, timestamp),
		Kind:       kind,
		ResourceID: resourceID,
		Body:       body,
	}
}

// Decode unmarshals the carried body into dst
func (e ResourceUpdated) Decode(dst any) error {
	return json.Unmarshal(e.Body, dst)
}

// ResourceDeleted is raised after the API accepted a delete
type ResourceDeleted struct {
	BaseEvent
	Kind       string `json:"kind"`
	ResourceID string `json:"resource_id"`
}

// NewResourceDeleted creates a ResourceDeleted event
func NewResourceDeleted(kind, resourceID string, timestamp time.Time) ResourceDeleted {
	return ResourceDeleted{
		BaseEvent:  newBase(TypeResourceDeleted, resourceID, timestamp),
		Kind:       kind,
		ResourceID: resourceID,
	}
}
