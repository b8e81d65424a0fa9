package store

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"ideaclient/application/ports"
	apperrors "ideaclient/pkg/errors"
	"ideaclient/pkg/validation"
)

// Verb names an action for logs, metrics and failure texts
type Verb string

const (
	VerbList   Verb = "list"
	VerbGet    Verb = "get"
	VerbCreate Verb = "create"
	VerbUpdate Verb = "update"
	VerbDelete Verb = "delete"
)

// StatusPolicy decides whether a settled status counts as success
type StatusPolicy func(status int) bool

// AnySuccess accepts every 2xx status
func AnySuccess(status int) bool {
	return status >= 200 && status < 300
}

// Exactly accepts only the listed statuses
func Exactly(codes ...int) StatusPolicy {
	return func(status int) bool {
		return slices.Contains(codes, status)
	}
}

// Messages are the texts a store shows on success
type Messages struct {
	Created string
	Updated string
	Deleted string
}

// Definition describes one resource kind
type Definition[T any] struct {
	// Kind is the lower-case name used in logs, metrics and events ("idea")
	Kind string
	// Label is the display name ("Idea")
	Label string
	// Endpoint is the collection path relative to the API base ("ideas")
	Endpoint string

	CreateStatus StatusPolicy
	UpdateStatus StatusPolicy
	DeleteStatus StatusPolicy

	Messages Messages

	// FailureText returns the kind-specific text for a failed verb, or ""
	// to fall back to the server detail.
	FailureText func(verb Verb, errType apperrors.ErrorType) string

	// ResourceID extracts the identifier carried in events
	ResourceID func(T) string
}

func (d Definition[T]) policy(verb Verb) StatusPolicy {
	switch verb {
	case VerbCreate:
		if d.CreateStatus != nil {
			return d.CreateStatus
		}
		return Exactly(http.StatusCreated)
	case VerbUpdate:
		if d.UpdateStatus != nil {
			return d.UpdateStatus
		}
		return Exactly(http.StatusOK)
	case VerbDelete:
		if d.DeleteStatus != nil {
			return d.DeleteStatus
		}
		return Exactly(http.StatusOK, http.StatusNoContent)
	default:
		return AnySuccess
	}
}

func (d Definition[T]) messages() Messages {
	m := d.Messages
	label := d.Label
	if label == "" {
		label = "Resource"
	}
	if m.Created == "" {
		m.Created = label + " added successfully!"
	}
	if m.Updated == "" {
		m.Updated = label + " updated successfully!"
	}
	if m.Deleted == "" {
		m.Deleted = label + " deleted successfully!"
	}
	return m
}

func (d Definition[T]) itemPath(id string) string {
	return strings.TrimSuffix(d.Endpoint, "/") + "/" + url.PathEscape(id)
}

func (d Definition[T]) id(item *T) string {
	if item == nil || d.ResourceID == nil {
		return ""
	}
	return d.ResourceID(*item)
}

// Deps are the collaborators every store shares. Gateway and Session are
// required; the rest default to no-ops.
type Deps struct {
	Gateway       ports.Gateway
	Session       ports.SessionProvider
	Bus           ports.EventBus
	Notifier      ports.Notifier
	Metrics       ports.Metrics
	Logger        *zap.Logger
	Validator     *validation.Validator
	FeedbackDelay time.Duration
	Now           func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Bus == nil {
		d.Bus = ports.NopEventBus{}
	}
	if d.Notifier == nil {
		d.Notifier = ports.NopNotifier{}
	}
	if d.Metrics == nil {
		d.Metrics = ports.NopMetrics{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Validator == nil {
		d.Validator = validation.Default()
	}
	if d.FeedbackDelay <= 0 {
		d.FeedbackDelay = DefaultFeedbackDelay
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Action is one authenticated request made on behalf of a store
type Action struct {
	Verb   Verb
	Method string
	Path   string
	Query  url.Values
	Body   any

	// Slot is the piece of state the action writes. A newer action on the
	// same slot supersedes this one.
	Slot string

	// Accept defaults to any 2xx
	Accept StatusPolicy

	// Success is shown when the action succeeds; a "message" field in the
	// response body takes precedence.
	Success string

	// Mutation marks actions that changed server state. Their results are
	// returned even when superseded.
	Mutation bool

	// AllowEmpty accepts a response without a body
	AllowEmpty bool
}

func (a Action) accepts(status int) bool {
	if a.Accept == nil {
		return AnySuccess(status)
	}
	return a.Accept(status)
}
