// Package stores specializes the generic resource store for each kind the
// API serves.
package stores

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"ideaclient/application/ports"
	"ideaclient/application/store"
	"ideaclient/domain/events"
)

// Registry holds one store per resource kind
type Registry struct {
	Ideas   *IdeaStore
	Tags    *TagStore
	Scripts *ScriptStore
	Users   *UserStore

	logger *zap.Logger

	mu    sync.Mutex
	owner int64 // user the cached data belongs to, 0 when unknown
}

// NewRegistry builds every store over the same dependencies
func NewRegistry(deps store.Deps) *Registry {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		Ideas:   NewIdeaStore(deps),
		Tags:    NewTagStore(deps),
		Scripts: NewScriptStore(deps),
		Users:   NewUserStore(deps),
		logger:  logger,
	}
}

// ResetAll empties every store
func (r *Registry) ResetAll() {
	r.Ideas.Reset()
	r.Tags.Reset()
	r.Scripts.Reset()
	r.Users.Reset()
}

// BindSessionLifecycle keeps cached data scoped to one user. A logout empties
// every store; a 401 leaves them as they were. A session started by a
// different user empties them as well.
func (r *Registry) BindSessionLifecycle(bus ports.EventBus) (unbind func()) {
	unbindEnded := bus.Subscribe(events.TypeSessionEnded, func(_ context.Context, event events.Event) error {
		ended, ok := event.(events.SessionEnded)
		if !ok || ended.Reason != events.ReasonLogout {
			return nil
		}
		r.logger.Debug("Resetting stores", zap.String("reason", string(ended.Reason)))
		r.mu.Lock()
		r.owner = 0
		r.mu.Unlock()
		r.ResetAll()
		return nil
	})
	unbindStarted := bus.Subscribe(events.TypeSessionStarted, func(_ context.Context, event events.Event) error {
		started, ok := event.(events.SessionStarted)
		if !ok {
			return nil
		}
		r.mu.Lock()
		previous := r.owner
		r.owner = started.UserID
		r.mu.Unlock()
		if previous != 0 && previous != started.UserID {
			r.logger.Debug("Resetting stores", zap.String("reason", "user changed"))
			r.ResetAll()
		}
		return nil
	})
	return func() {
		unbindEnded()
		unbindStarted()
	}
}
