// Package config defines the global configuration for the vehicle notification
// pipeline. Configuration is loaded once at process initialization and is
// immutable thereafter; it follows 12-Factor principles by strictly separating
// code from configuration.
//
// Values are resolved via a priority chain: OS environment (highest), then a
// dotenv file. Any missing required value or invalid format fails the process
// immediately on startup.
package config

import (
	"time"
)

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Components receive only the
// subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Database DatabaseConfig
	AWS      AWSConfig
	Pipeline PipelineConfig
	Secure   SecureConfig
}

// DatabaseConfig holds connection and pool tuning parameters for the
// configuration store.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// AlertQueue is the inbound alert event queue consumed by the worker.
	AlertQueue string `envconfig:"SQS_ALERT_QUEUE"`

	// DispatchQueue receives finished per-locale, per-config messages.
	DispatchQueue string `envconfig:"SQS_DISPATCH_QUEUE"`

	// MetricNamespace for CloudWatch pipeline metrics.
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"VehicleNotify/Pipeline"`

	// LocalStack support; empty in prod.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// PipelineConfig holds the explicit pipeline tuning knobs: defaults used by
// candidate selection and the transformation engine's concurrency bounds.
type PipelineConfig struct {
	DefaultBrand  string `envconfig:"DEFAULT_BRAND" default:"default" validate:"required"`
	DefaultLocale string `envconfig:"DEFAULT_LOCALE" default:"en_US" validate:"required"`

	// TransformTimeout bounds each individual content-transformer call.
	// Elapsed calls resolve via the transformer's fallback, never abort.
	TransformTimeout time.Duration `envconfig:"TRANSFORM_TIMEOUT" default:"2s"`

	// TransformWorkers caps concurrently running transformer tasks.
	TransformWorkers int `envconfig:"TRANSFORM_WORKERS" default:"32" validate:"min=1"`

	// TransformerConfigPath points at the YAML registry file declaring
	// HTTP-backed transformers. Empty means only built-ins are registered.
	TransformerConfigPath string `envconfig:"TRANSFORMER_CONFIG" default:""`

	// DisabledTransformers removes transformer ids from the registry at
	// startup, in addition to any ids disabled in the registry file.
	DisabledTransformers []string `envconfig:"DISABLED_TRANSFORMERS"`
}

// SecureConfig holds the PII field encryption key material.
type SecureConfig struct {
	// PIIKeyHex is the hex-encoded 32-byte key used to decrypt contact
	// email/phone fields at read time. Required whenever a live database
	// is configured.
	PIIKeyHex string `envconfig:"PII_KEY_HEX"`
}
