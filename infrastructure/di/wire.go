//go:build wireinject
// +build wireinject

package di

import (
	"context"
	"io"

	"github.com/google/wire"

	"ideaclient/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideTracing,
	ProvideAWSConfig,
	ProvideGateway,
	ProvideSessionStorage,
	ProvideEventBus,
	ProvideForwarder,
	ProvideNotifier,
	ProvideNavigator,
	ProvideSessionService,
	ProvideStores,
	ProvideSessionWatcher,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. Feedback and route
// changes are printed to out. The cleanup func releases everything in
// reverse order of creation.
func InitializeContainer(ctx context.Context, cfg *config.Config, out io.Writer) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
