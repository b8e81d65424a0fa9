package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the config file when Load gets an empty path
const EnvConfigPath = "IDEACLIENT_CONFIG"

// Load builds the configuration. The loading order, lowest priority first:
//  1. Default values
//  2. The YAML file at path, or at $IDEACLIENT_CONFIG when path is empty
//  3. Environment variables
//
// An explicit path that does not exist is an error; a missing
// $IDEACLIENT_CONFIG file is not.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.LoadedFrom = append(cfg.LoadedFrom, "defaults")

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		err := loadFile(path, cfg)
		switch {
		case err == nil:
			cfg.LoadedFrom = append(cfg.LoadedFrom, path)
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, err
		}
	}

	loadEnvironmentVariables(cfg)
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := decodeYAML(bytes.NewReader(data), cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// decodeYAML overlays the document on cfg; unknown keys are rejected so
// typos do not silently fall back to defaults
func decodeYAML(r io.Reader, cfg *Config) error {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// loadEnvironmentVariables overlays environment variables on the configuration
func loadEnvironmentVariables(cfg *Config) {
	cfg.Environment = getEnv("IDEACLIENT_ENV", cfg.Environment)

	// API
	cfg.API.BaseURL = getEnv("IDEACLIENT_API_URL", cfg.API.BaseURL)
	cfg.API.Timeout = getEnvDuration("IDEACLIENT_API_TIMEOUT", cfg.API.Timeout)
	cfg.API.Breaker.FailureThreshold = getEnvFloat("IDEACLIENT_BREAKER_THRESHOLD", cfg.API.Breaker.FailureThreshold)

	// Session
	cfg.Session.Backend = getEnv("SESSION_BACKEND", cfg.Session.Backend)
	cfg.Session.Dir = getEnv("SESSION_DIR", cfg.Session.Dir)
	cfg.Session.Lifetime = getEnvDuration("SESSION_LIFETIME", cfg.Session.Lifetime)
	cfg.Session.Watch = getEnvBool("SESSION_WATCH", cfg.Session.Watch)
	cfg.Session.Redis.Addr = getEnv("REDIS_ADDR", cfg.Session.Redis.Addr)
	cfg.Session.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Session.Redis.Password)
	cfg.Session.Redis.DB = getEnvInt("REDIS_DB", cfg.Session.Redis.DB)
	cfg.Session.DynamoDB.TableName = getEnv("SESSION_TABLE", cfg.Session.DynamoDB.TableName)

	cfg.Feedback.Delay = getEnvDuration("FEEDBACK_DELAY", cfg.Feedback.Delay)

	// Observability
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Metrics.Textfile = getEnv("METRICS_TEXTFILE", cfg.Metrics.Textfile)
	cfg.Tracing.Enabled = getEnvBool("ENABLE_TRACING", cfg.Tracing.Enabled)
	cfg.Tracing.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.SampleRate = getEnvFloat("TRACING_SAMPLE_RATE", cfg.Tracing.SampleRate)

	// Events and AWS
	cfg.Events.Forward = getEnvBool("FORWARD_EVENTS", cfg.Events.Forward)
	cfg.Events.EventBusName = getEnv("EVENT_BUS_NAME", cfg.Events.EventBusName)
	cfg.AWS.Region = getEnv("AWS_REGION", cfg.AWS.Region)
	cfg.AWS.Endpoint = getEnv("AWS_ENDPOINT_URL", cfg.AWS.Endpoint)

	// Mock API
	cfg.MockAPI.Addr = getEnv("MOCKAPI_ADDR", cfg.MockAPI.Addr)
	cfg.MockAPI.JWTSecret = getEnv("JWT_SECRET", cfg.MockAPI.JWTSecret)
}
