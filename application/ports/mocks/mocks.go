// Package mocks provides testify mocks for the application ports.
package mocks

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"ideaclient/application/ports"
	"ideaclient/domain/events"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Do(ctx context.Context, req ports.Request) (*ports.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) != nil {
		return args.Get(0).(*ports.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSessionProvider struct {
	mock.Mock
}

func (m *MockSessionProvider) AuthHeaders() (http.Header, error) {
	args := m.Called()
	if args.Get(0) != nil {
		return args.Get(0).(http.Header), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionProvider) HandleUnauthorized(ctx context.Context, header http.Header) bool {
	args := m.Called(ctx, header)
	return args.Bool(0)
}

type MockSessionStorage struct {
	mock.Mock
}

func (m *MockSessionStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	var data []byte
	if args.Get(0) != nil {
		data = args.Get(0).([]byte)
	}
	return data, args.Bool(1), args.Error(2)
}

func (m *MockSessionStorage) Set(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	args := m.Called(ctx, key, data, expiresAt)
	return args.Error(0)
}

func (m *MockSessionStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, event events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(eventType string, handler ports.EventHandler) func() {
	args := m.Called(eventType, handler)
	if fn, ok := args.Get(0).(func()); ok {
		return fn
	}
	return func() {}
}

// RecordingNotifier keeps every notification it receives
type RecordingNotifier struct {
	mu    sync.Mutex
	items []ports.Notification
}

func (r *RecordingNotifier) Notify(n ports.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *RecordingNotifier) Notifications() []ports.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.Notification(nil), r.items...)
}

// RecordingNavigator keeps every route it was asked to navigate to
type RecordingNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (r *RecordingNavigator) Navigate(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func (r *RecordingNavigator) Routes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.routes...)
}
