// Package config loads client configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"
)

// Session storage backends
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
)

var backends = []string{BackendMemory, BackendFile, BackendRedis, BackendDynamoDB}

var logLevels = []string{"debug", "info", "warn", "error"}

// Config holds all client configuration
type Config struct {
	Environment string   `yaml:"environment"`
	API         API      `yaml:"api"`
	Session     Session  `yaml:"session"`
	Feedback    Feedback `yaml:"feedback"`
	Logging     Logging  `yaml:"logging"`
	Metrics     Metrics  `yaml:"metrics"`
	Tracing     Tracing  `yaml:"tracing"`
	Events      Events   `yaml:"events"`
	AWS         AWS      `yaml:"aws"`
	MockAPI     MockAPI  `yaml:"mock_api"`

	// LoadedFrom lists the sources applied, lowest precedence first
	LoadedFrom []string `yaml:"-"`
}

// API configures the HTTP gateway
type API struct {
	BaseURL   string         `yaml:"base_url"`
	Timeout   time.Duration  `yaml:"timeout"`
	UserAgent string         `yaml:"user_agent"`
	Breaker   CircuitBreaker `yaml:"circuit_breaker"`
}

// CircuitBreaker configures the breaker around API calls
type CircuitBreaker struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// Session configures where and how long the login is kept
type Session struct {
	Backend      string        `yaml:"backend"`
	StorageKey   string        `yaml:"storage_key"`
	Lifetime     time.Duration `yaml:"lifetime"`
	LandingRoute string        `yaml:"landing_route"`
	LoginRoute   string        `yaml:"login_route"`
	Dir          string        `yaml:"dir"`
	Watch        bool          `yaml:"watch"`
	Redis        Redis         `yaml:"redis"`
	DynamoDB     DynamoDB      `yaml:"dynamodb"`
}

// Redis configures the redis session backend
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// DynamoDB configures the dynamodb session backend
type DynamoDB struct {
	TableName string `yaml:"table_name"`
}

// Feedback configures transient store messages
type Feedback struct {
	Delay time.Duration `yaml:"delay"`
}

// Logging configures the zap logger
type Logging struct {
	Level string `yaml:"level"`
}

// Metrics configures the Prometheus collector
type Metrics struct {
	Namespace string `yaml:"namespace"`
	Textfile  string `yaml:"textfile"`
}

// Tracing configures OpenTelemetry export
type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// Events configures forwarding of client events to EventBridge
type Events struct {
	Forward      bool          `yaml:"forward"`
	EventBusName string        `yaml:"event_bus_name"`
	Source       string        `yaml:"source"`
	FlushEvery   time.Duration `yaml:"flush_every"`
}

// AWS holds settings shared by the AWS clients
type AWS struct {
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// MockAPI configures the development API server
type MockAPI struct {
	Addr           string        `yaml:"addr"`
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	return &Config{
		Environment: "development",
		API: API{
			BaseURL:   "http://localhost:8000/api/",
			Timeout:   30 * time.Second,
			UserAgent: "ideactl",
			Breaker: CircuitBreaker{
				MaxRequests:      5,
				Interval:         30 * time.Second,
				Timeout:          60 * time.Second,
				FailureThreshold: 0.8,
				MinRequests:      5,
			},
		},
		Session: Session{
			Backend:      BackendFile,
			StorageKey:   "user",
			Lifetime:     30 * 24 * time.Hour,
			LandingRoute: "/dashboard",
			LoginRoute:   "/login",
			Dir:          defaultSessionDir(),
			Redis: Redis{
				Addr:   "localhost:6379",
				Prefix: "ideaclient:session:",
			},
			DynamoDB: DynamoDB{TableName: "ideaclient-sessions"},
		},
		Feedback: Feedback{Delay: 5 * time.Second},
		Logging:  Logging{Level: "warn"},
		Metrics:  Metrics{Namespace: "ideaclient"},
		Tracing: Tracing{
			ServiceName: "ideaclient",
			Endpoint:    "localhost:4317",
			SampleRate:  1,
		},
		Events: Events{
			EventBusName: "ideaclient-events",
			Source:       "ideaclient",
			FlushEvery:   time.Second,
		},
		AWS: AWS{Region: "us-east-1"},
		MockAPI: MockAPI{
			Addr:           ":8000",
			JWTSecret:      "dev-secret-change-me",
			TokenTTL:       24 * time.Hour,
			AllowedOrigins: []string{"*"},
		},
	}
}

func defaultSessionDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ideaclient", "sessions")
	}
	return filepath.Join(".ideaclient", "sessions")
}

// Validate checks the configuration and reports every problem found
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout must be positive"))
	}
	if c.API.Breaker.FailureThreshold <= 0 || c.API.Breaker.FailureThreshold > 1 {
		errs = append(errs, errors.New("api.circuit_breaker.failure_threshold must be in (0, 1]"))
	}

	if !slices.Contains(backends, c.Session.Backend) {
		errs = append(errs, fmt.Errorf("session.backend must be one of %v, got %q", backends, c.Session.Backend))
	}
	if c.Session.StorageKey == "" {
		errs = append(errs, errors.New("session.storage_key is required"))
	}
	if c.Session.Lifetime <= 0 {
		errs = append(errs, errors.New("session.lifetime must be positive"))
	}
	switch c.Session.Backend {
	case BackendFile:
		if c.Session.Dir == "" {
			errs = append(errs, errors.New("session.dir is required for the file backend"))
		}
	case BackendRedis:
		if c.Session.Redis.Addr == "" {
			errs = append(errs, errors.New("session.redis.addr is required for the redis backend"))
		}
	case BackendDynamoDB:
		if c.Session.DynamoDB.TableName == "" {
			errs = append(errs, errors.New("session.dynamodb.table_name is required for the dynamodb backend"))
		}
	}
	if c.Session.Watch && c.Session.Backend != BackendFile {
		errs = append(errs, errors.New("session.watch is only supported by the file backend"))
	}

	if c.Feedback.Delay <= 0 {
		errs = append(errs, errors.New("feedback.delay must be positive"))
	}
	if !slices.Contains(logLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of %v, got %q", logLevels, c.Logging.Level))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, errors.New("tracing.sample_rate must be between 0 and 1"))
	}
	if c.Events.Forward && c.Events.EventBusName == "" {
		errs = append(errs, errors.New("events.event_bus_name is required when forwarding events"))
	}
	if c.IsProduction() && c.MockAPI.JWTSecret == Default().MockAPI.JWTSecret {
		errs = append(errs, errors.New("mock_api.jwt_secret must be changed in production"))
	}

	return errors.Join(errs...)
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
