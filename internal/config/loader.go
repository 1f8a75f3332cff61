// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC to prevent timezone drift between stages and the store.
//  2. Load a .env file via godotenv (non-fatal if absent).
//  3. Populate the Config struct from envconfig struct tags.
//  4. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load resolves the process configuration from the environment. It returns a
// descriptive error on any missing required value or validation failure so
// the caller can fail fast.
func Load() (*Config, error) {
	// All timestamps in the pipeline are UTC; enforcing it here prevents
	// host-local drift from leaking into dispatch messages.
	time.Local = time.UTC
	os.Setenv("TZ", "UTC")

	// .env is a local-development convenience; absence is not an error.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: envconfig processing failed: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate runs struct-tag validation plus cross-field rules that tags cannot
// express.
func validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("config: validation failed: %w", err)
	}

	if cfg.Pipeline.TransformTimeout <= 0 {
		return fmt.Errorf("config: TRANSFORM_TIMEOUT must be positive, got %s", cfg.Pipeline.TransformTimeout)
	}
	if cfg.Database.URL != "" && cfg.Secure.PIIKeyHex == "" {
		return fmt.Errorf("config: PII_KEY_HEX is required when DATABASE_URL is set")
	}

	return nil
}
