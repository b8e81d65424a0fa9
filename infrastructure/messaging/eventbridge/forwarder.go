// Package eventbridge forwards client events to an AWS EventBridge bus.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"ideaclient/application/ports"
	"ideaclient/domain/events"
)

// maxBatchSize is the PutEvents entry limit
const maxBatchSize = 10

// API is the subset of the EventBridge client the forwarder needs
type API interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Config configures a Forwarder
type Config struct {
	EventBusName  string
	Source        string
	FlushInterval time.Duration
	QueueSize     int
	PutTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Source == "" {
		c.Source = "ideaclient"
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = time.Second
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.PutTimeout <= 0 {
		c.PutTimeout = 10 * time.Second
	}
	return c
}

// Forwarder copies events from the local bus to EventBridge. Events are
// queued and sent in batches off the publishing goroutine, so a slow or
// failing AWS call never delays a store action.
type Forwarder struct {
	client API
	cfg    Config
	logger *zap.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan events.Event
	unsubs  []func()
	started bool
	done    chan struct{}
}

// NewForwarder creates a forwarder. Call Attach and Start to begin forwarding.
func NewForwarder(client API, cfg Config, logger *zap.Logger) *Forwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Forwarder{
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "eventbridge")),
		queue:  make(chan events.Event, cfg.QueueSize),
		done:   make(chan struct{}),
	}
}

// Attach subscribes the forwarder to every event type on bus
func (f *Forwarder) Attach(bus ports.EventBus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, eventType := range events.Types {
		f.unsubs = append(f.unsubs, bus.Subscribe(eventType, f.enqueue))
	}
}

func (f *Forwarder) enqueue(_ context.Context, event events.Event) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil
	}

	select {
	case f.queue <- event:
	default:
		f.logger.Warn("Event queue full, dropping event",
			zap.String("eventType", event.GetEventType()),
			zap.String("eventID", event.GetEventID()))
	}
	return nil
}

// Start runs the batching loop in a background goroutine
func (f *Forwarder) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return
	}
	f.started = true
	go f.run()
}

func (f *Forwarder) run() {
	defer close(f.done)

	ticker := time.NewTicker(f.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]events.Event, 0, maxBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), f.cfg.PutTimeout)
		defer cancel()
		if err := f.PublishBatch(ctx, batch); err != nil {
			f.logger.Error("Failed to forward events", zap.Error(err), zap.Int("count", len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-f.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= maxBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Close detaches from the bus and flushes queued events, waiting until ctx
// is done at most
func (f *Forwarder) Close(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	for _, unsub := range f.unsubs {
		unsub()
	}
	f.unsubs = nil
	close(f.queue)
	started := f.started
	f.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event flush interrupted: %w", ctx.Err())
	}
}

// PublishBatch sends events directly, split into PutEvents-sized chunks
func (f *Forwarder) PublishBatch(ctx context.Context, batch []events.Event) error {
	for i := 0; i < len(batch); i += maxBatchSize {
		end := min(i+maxBatchSize, len(batch))
		if err := f.put(ctx, batch[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (f *Forwarder) put(ctx context.Context, batch []events.Event) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(batch))
	sent := make([]events.Event, 0, len(batch))

	for _, event := range batch {
		detail, err := json.Marshal(event)
		if err != nil {
			f.logger.Error("Failed to marshal event",
				zap.Error(err),
				zap.String("eventType", event.GetEventType()))
			continue
		}

		entry := types.PutEventsRequestEntry{
			Source:     aws.String(f.cfg.Source),
			DetailType: aws.String(event.GetEventType()),
			Detail:     aws.String(string(detail)),
			Time:       aws.Time(event.GetTimestamp()),
		}
		if f.cfg.EventBusName != "" {
			entry.EventBusName = aws.String(f.cfg.EventBusName)
		}
		entries = append(entries, entry)
		sent = append(sent, event)
	}

	if len(entries) == 0 {
		return nil
	}

	result, err := f.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to publish events to EventBridge: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil && i < len(sent) {
				f.logger.Error("Failed to publish event",
					zap.String("eventType", sent[i].GetEventType()),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)))
			}
		}
		return fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
	}

	f.logger.Debug("Events published to EventBridge",
		zap.Int("count", len(entries)),
		zap.String("eventBus", f.cfg.EventBusName))
	return nil
}
