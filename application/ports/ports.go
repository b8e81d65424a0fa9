package ports

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"ideaclient/domain/events"
)

// Request is a single call against the REST API. Path is relative to the
// gateway's base URL; Body, when non-nil, is sent as JSON.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
}

// Response is a settled API call with a status below 400
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Gateway performs requests against the API.
// Statuses >= 400 come back as an *errors.AppError carrying the status and
// the normalized server message; transport failures as a NETWORK error.
type Gateway interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// SessionProvider is the part of the session service resource stores rely on
type SessionProvider interface {
	// AuthHeaders returns the bearer header for the current session, or an
	// UNAUTHENTICATED error when there is none.
	AuthHeaders() (http.Header, error)

	// HandleUnauthorized tears the session down if header still carries the
	// current token. It reports whether this call performed the teardown.
	HandleUnauthorized(ctx context.Context, header http.Header) bool
}

// SessionStorage persists the session blob between runs
type SessionStorage interface {
	// Get returns the blob stored under key; ok is false when absent or expired
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores data under key until expiresAt
	Set(ctx context.Context, key string, data []byte, expiresAt time.Time) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// Level classifies a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a single feedback message surfaced to the user
type Notification struct {
	Scope string
	Level Level
	Text  string
}

// Notifier renders feedback
type Notifier interface {
	Notify(n Notification)
}

// Navigator moves the interface to a named route
type Navigator interface {
	Navigate(route string)
}

// EventHandler receives published events
type EventHandler func(ctx context.Context, event events.Event) error

// EventBus is the process-wide publish/subscribe channel
type EventBus interface {
	Publish(ctx context.Context, event events.Event) error
	Subscribe(eventType string, handler EventHandler) (unsubscribe func())
}

// Metrics records client-side outcomes
type Metrics interface {
	ObserveAction(kind, verb, outcome string, duration time.Duration)
	IncSessionInvalidation(reason string)
}
