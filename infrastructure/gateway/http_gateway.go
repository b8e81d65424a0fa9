// Package gateway sends API requests over HTTP behind a circuit breaker.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"ideaclient/application/ports"
	apperrors "ideaclient/pkg/errors"
)

const (
	// DefaultBaseURL is where the API listens in development
	DefaultBaseURL = "http://localhost:8000/api/"

	// HeaderRequestID carries a per-request correlation id
	HeaderRequestID = "X-Request-ID"

	maxResponseBytes = 10 << 20
)

// errServerFailure marks 5xx responses so the breaker counts them
var errServerFailure = errors.New("server error")

// Recorder receives request metrics
type Recorder interface {
	ObserveRequest(method string, status int, duration time.Duration)
	SetBreakerState(name string, state int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, int, time.Duration) {}
func (nopRecorder) SetBreakerState(string, int)              {}

// BreakerConfig holds configuration for the circuit breaker
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold is the failure ratio that trips the breaker once
	// MinRequests have been seen
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a default configuration for the circuit breaker
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "api",
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Config configures the gateway
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Breaker   BreakerConfig
}

// HTTPGateway implements ports.Gateway over net/http
type HTTPGateway struct {
	base      *url.URL
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
	tracer    trace.Tracer
	recorder  Recorder
	logger    *zap.Logger
	userAgent string
}

// New creates a gateway. A nil client gets one with cfg.Timeout.
func New(cfg Config, client *http.Client, recorder Recorder, logger *zap.Logger) (*HTTPGateway, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ideaclient"
	}

	g := &HTTPGateway{
		base:      base,
		client:    client,
		tracer:    otel.Tracer("ideaclient/gateway"),
		recorder:  recorder,
		logger:    logger.With(zap.String("component", "gateway")),
		userAgent: cfg.UserAgent,
	}
	g.breaker = newBreaker(cfg.Breaker, recorder, g.logger)
	return g, nil
}

func newBreaker(cfg BreakerConfig, recorder Recorder, logger *zap.Logger) *gobreaker.CircuitBreaker {
	defaults := DefaultBreakerConfig()
	if cfg.Name == "" {
		cfg.Name = defaults.Name
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = defaults.MinRequests
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			recorder.SetBreakerState(name, int(to))
		},
		// A caller giving up says nothing about the API's health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// BaseURL returns the URL request paths are resolved against
func (g *HTTPGateway) BaseURL() string {
	return g.base.String()
}

// Do sends req and returns the response for statuses below 400
func (g *HTTPGateway) Do(ctx context.Context, req ports.Request) (*ports.Response, error) {
	target, err := g.resolve(req.Path, req.Query)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid request path %q", req.Path)).WithCause(err)
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, apperrors.NewUnknownError("failed to encode request body").WithCause(err)
		}
		body = bytes.NewReader(data)
	}

	ctx, span := g.tracer.Start(ctx, "API "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", target.String()),
		))
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, apperrors.NewUnknownError("failed to build request").WithCause(err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", g.userAgent)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	httpReq.Header.Set(HeaderRequestID, requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	started := time.Now()
	result, err := g.breaker.Execute(func() (any, error) {
		return g.send(httpReq)
	})
	elapsed := time.Since(started)

	resp, _ := result.(*ports.Response)
	status := 0
	if resp != nil {
		status = resp.Status
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	g.recorder.ObserveRequest(req.Method, status, elapsed)

	logFields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.String("request_id", requestID),
		zap.Int("status", status),
		zap.Duration("duration", elapsed),
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		span.SetStatus(codes.Error, "circuit open")
		g.logger.Warn("Request rejected by circuit breaker", logFields...)
		return nil, apperrors.NewUnavailableError("api").WithCause(err)

	case errors.Is(err, errServerFailure):
		span.SetStatus(codes.Error, http.StatusText(status))
		g.logger.Warn("API server error", logFields...)
		return nil, apperrors.FromResponse(resp.Status, resp.Body)

	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		g.logger.Warn("API request failed", append(logFields, zap.Error(err))...)
		return nil, apperrors.NewNetworkError("request failed", err)
	}

	if resp.Status >= http.StatusBadRequest {
		span.SetStatus(codes.Error, http.StatusText(resp.Status))
		g.logger.Debug("API rejected request", logFields...)
		return nil, apperrors.FromResponse(resp.Status, resp.Body)
	}

	g.logger.Debug("API request completed", logFields...)
	return resp, nil
}

func (g *HTTPGateway) send(req *http.Request) (*ports.Response, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	out := &ports.Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return out, errServerFailure
	}
	return out, nil
}

func (g *HTTPGateway) resolve(path string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, err
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("path must be relative")
	}
	target := g.base.ResolveReference(ref)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	return target, nil
}
