package ports

import (
	"context"
	"time"

	"ideaclient/domain/events"
)

// NopNotifier discards notifications
type NopNotifier struct{}

func (NopNotifier) Notify(Notification) {}

// NopNavigator ignores navigation
type NopNavigator struct{}

func (NopNavigator) Navigate(string) {}

// NopMetrics records nothing
type NopMetrics struct{}

func (NopMetrics) ObserveAction(string, string, string, time.Duration) {}
func (NopMetrics) IncSessionInvalidation(string)                      {}

// NopEventBus drops every event
type NopEventBus struct{}

func (NopEventBus) Publish(context.Context, events.Event) error { return nil }
func (NopEventBus) Subscribe(string, EventHandler) func()       { return func() {} }
