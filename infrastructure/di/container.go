// Package di assembles the client from configuration.
package di

import (
	"go.uber.org/zap"

	"ideaclient/application/ports"
	"ideaclient/application/services"
	"ideaclient/application/stores"
	"ideaclient/infrastructure/config"
	"ideaclient/infrastructure/gateway"
	"ideaclient/infrastructure/messaging/eventbridge"
	"ideaclient/infrastructure/observability"
	"ideaclient/infrastructure/persistence/file"
	"ideaclient/interfaces/console"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *observability.Collector
	Tracing   *observability.TracerProvider
	Gateway   *gateway.HTTPGateway
	Storage   ports.SessionStorage
	EventBus  ports.EventBus
	Navigator *console.Navigator
	Session   *services.SessionService
	Stores    *stores.Registry

	// Forwarder and Watcher are nil when disabled in config
	Forwarder *eventbridge.Forwarder
	Watcher   *file.Watcher
}
