package stores

import (
	"context"
	"net/http"
	"sync"

	"ideaclient/application/store"
	"ideaclient/domain/resources"
)

// UserDefinition describes the users endpoint
func UserDefinition() store.Definition[resources.User] {
	return store.Definition[resources.User]{
		Kind:       "user",
		Label:      "User",
		Endpoint:   "users",
		ResourceID: resources.User.Key,
	}
}

// UserStore is read-only: users are created through registration, never
// through this store.
type UserStore struct {
	store *store.Store[resources.User]

	mu      sync.Mutex
	profile *resources.User
}

// NewUserStore creates the user store
func NewUserStore(deps store.Deps) *UserStore {
	return &UserStore{store: store.New(UserDefinition(), deps)}
}

// List fetches a page of users
func (s *UserStore) List(ctx context.Context, page int) (*resources.Page[resources.User], error) {
	return s.store.List(ctx, page)
}

// Get fetches one user into Current
func (s *UserStore) Get(ctx context.Context, id string) (*resources.User, error) {
	return s.store.Get(ctx, id)
}

// Profile fetches the signed-in user's own account
func (s *UserStore) Profile(ctx context.Context) (*resources.User, error) {
	user, err := store.Invoke[resources.User, resources.User](ctx, s.store, store.Action{
		Verb:   "profile",
		Method: http.MethodGet,
		Path:   "users/profile",
		Slot:   "profile",
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.profile = user
	s.mu.Unlock()

	c := *user
	return &c, nil
}

// CurrentProfile returns the last fetched profile, or nil
func (s *UserStore) CurrentProfile() *resources.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil
	}
	c := *s.profile
	return &c
}

// Reset empties the store
func (s *UserStore) Reset() {
	s.mu.Lock()
	s.profile = nil
	s.mu.Unlock()
	s.store.Reset()
}

// State returns a snapshot of the store
func (s *UserStore) State() store.State[resources.User] {
	return s.store.State()
}

// Current returns the last fetched user, or nil
func (s *UserStore) Current() *resources.User {
	return s.store.Current()
}

// Collection returns the cached page, or nil
func (s *UserStore) Collection() *resources.Page[resources.User] {
	return s.store.Collection()
}

func (s *UserStore) Loading() bool {
	return s.store.Loading()
}

func (s *UserStore) Feedback() store.FeedbackState {
	return s.store.Feedback()
}

func (s *UserStore) Subscribe(fn func(store.State[resources.User])) func() {
	return s.store.Subscribe(fn)
}
