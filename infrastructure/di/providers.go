package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"ideaclient/application/ports"
	"ideaclient/application/services"
	"ideaclient/application/store"
	"ideaclient/application/stores"
	"ideaclient/infrastructure/config"
	"ideaclient/infrastructure/gateway"
	"ideaclient/infrastructure/messaging/eventbridge"
	"ideaclient/infrastructure/messaging/memory"
	"ideaclient/infrastructure/observability"
	"ideaclient/infrastructure/persistence/dynamodb"
	"ideaclient/infrastructure/persistence/file"
	persistencememory "ideaclient/infrastructure/persistence/memory"
	"ideaclient/infrastructure/persistence/redis"
	"ideaclient/interfaces/console"
)

// shutdownTimeout bounds how long cleanup waits on remote services
const shutdownTimeout = 5 * time.Second

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	logger, err := observability.NewLogger(cfg.Environment, cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	return observability.NewCollector(cfg.Metrics.Namespace)
}

// ProvideTracing installs the tracer provider. Spans are flushed on cleanup.
func ProvideTracing(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideAWSConfig creates AWS configuration. Loading does not contact AWS,
// so it is safe to provide even when no AWS backend is selected.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWS.Region),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.AWS.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
	}
	return awsCfg, nil
}

// ProvideGateway creates the HTTP gateway to the API
func ProvideGateway(cfg *config.Config, collector *observability.Collector, logger *zap.Logger) (*gateway.HTTPGateway, error) {
	return gateway.New(gateway.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
		Breaker: gateway.BreakerConfig{
			Name:             "api",
			MaxRequests:      cfg.API.Breaker.MaxRequests,
			Interval:         cfg.API.Breaker.Interval,
			Timeout:          cfg.API.Breaker.Timeout,
			FailureThreshold: cfg.API.Breaker.FailureThreshold,
			MinRequests:      cfg.API.Breaker.MinRequests,
		},
	}, nil, collector, logger)
}

// ProvideSessionStorage opens the configured session backend
func ProvideSessionStorage(ctx context.Context, cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) (ports.SessionStorage, func(), error) {
	switch cfg.Session.Backend {
	case config.BackendMemory:
		return persistencememory.NewSessionStorage(), func() {}, nil

	case config.BackendRedis:
		storage, err := redis.Connect(ctx, redis.Options{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
			Prefix:   cfg.Session.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := storage.Close(); err != nil {
				logger.Warn("Failed to close redis client", zap.Error(err))
			}
		}
		return storage, cleanup, nil

	case config.BackendDynamoDB:
		client := awsdynamodb.NewFromConfig(awsCfg)
		return dynamodb.NewSessionStorage(client, cfg.Session.DynamoDB.TableName, logger), func() {}, nil

	default:
		storage, err := file.NewSessionStorage(cfg.Session.Dir)
		if err != nil {
			return nil, nil, err
		}
		return storage, func() {}, nil
	}
}

// ProvideEventBus creates the in-process event bus
func ProvideEventBus(logger *zap.Logger) ports.EventBus {
	return memory.NewBus(logger)
}

// ProvideForwarder starts forwarding bus events to EventBridge when enabled.
// It returns nil otherwise.
func ProvideForwarder(cfg *config.Config, awsCfg aws.Config, bus ports.EventBus, logger *zap.Logger) (*eventbridge.Forwarder, func()) {
	if !cfg.Events.Forward {
		return nil, func() {}
	}

	forwarder := eventbridge.NewForwarder(awseventbridge.NewFromConfig(awsCfg), eventbridge.Config{
		EventBusName:  cfg.Events.EventBusName,
		Source:        cfg.Events.Source,
		FlushInterval: cfg.Events.FlushEvery,
	}, logger)
	forwarder.Attach(bus)
	forwarder.Start()

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := forwarder.Close(ctx); err != nil {
			logger.Warn("Failed to drain event forwarder", zap.Error(err))
		}
	}
	return forwarder, cleanup
}

// ProvideNotifier prints store feedback to out
func ProvideNotifier(out io.Writer) ports.Notifier {
	return console.NewNotifier(out)
}

// ProvideNavigator prints route changes to out
func ProvideNavigator(out io.Writer) *console.Navigator {
	return console.NewNavigator(out)
}

// ProvideSessionService creates the session service
func ProvideSessionService(
	cfg *config.Config,
	gw *gateway.HTTPGateway,
	storage ports.SessionStorage,
	bus ports.EventBus,
	notifier ports.Notifier,
	navigator *console.Navigator,
	collector *observability.Collector,
	logger *zap.Logger,
) *services.SessionService {
	return services.NewSessionService(gw, storage, bus, notifier, navigator, collector, logger, services.SessionConfig{
		StorageKey:    cfg.Session.StorageKey,
		Lifetime:      cfg.Session.Lifetime,
		LandingRoute:  cfg.Session.LandingRoute,
		LoginRoute:    cfg.Session.LoginRoute,
		FeedbackDelay: cfg.Feedback.Delay,
	})
}

// ProvideStores creates every resource store and resets them when the
// session ends
func ProvideStores(
	cfg *config.Config,
	gw *gateway.HTTPGateway,
	sessions *services.SessionService,
	bus ports.EventBus,
	notifier ports.Notifier,
	collector *observability.Collector,
	logger *zap.Logger,
) (*stores.Registry, func()) {
	registry := stores.NewRegistry(store.Deps{
		Gateway:       gw,
		Session:       sessions,
		Bus:           bus,
		Notifier:      notifier,
		Metrics:       collector,
		Logger:        logger,
		FeedbackDelay: cfg.Feedback.Delay,
	})
	unbind := registry.BindSessionLifecycle(bus)
	return registry, unbind
}

// ProvideSessionWatcher reloads the session when another process changes
// the persisted file. It returns nil unless the file backend runs with
// watching enabled.
func ProvideSessionWatcher(
	cfg *config.Config,
	storage ports.SessionStorage,
	sessions *services.SessionService,
	logger *zap.Logger,
) (*file.Watcher, func(), error) {
	fileStorage, ok := storage.(*file.SessionStorage)
	if !ok || !cfg.Session.Watch {
		return nil, func() {}, nil
	}

	watcher, err := fileStorage.Watch(func(key string) {
		if key != cfg.Session.StorageKey {
			return
		}
		restored := sessions.Restore(context.Background())
		logger.Debug("Session file changed", zap.Bool("authenticated", restored != nil))
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	watcher.Start()
	return watcher, watcher.Stop, nil
}
