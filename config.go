// config.go loads forecastctl settings: struct defaults first, then
// FORECASTCTL_* environment overrides, then validation.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix namespaces environment overrides.
const DefaultEnvPrefix = "FORECASTCTL_"

// Config is the full settings surface of the controller and its hosts.
type Config struct {
	BaseURL             string        `koanf:"base_url" validate:"required,url"`
	PollInterval        time.Duration `koanf:"poll_interval" validate:"gt=0"`
	RequestTimeout      time.Duration `koanf:"request_timeout" validate:"gte=0"` // 0 means PollInterval
	ConfidenceThreshold int           `koanf:"confidence_threshold" validate:"min=0,max=100"`
	MaxIterations       int           `koanf:"max_iterations" validate:"min=1,max=5"`
	DaysAhead           int           `koanf:"days_ahead" validate:"min=1,max=90"`
	MaxPollFailures     int           `koanf:"max_poll_failures" validate:"gte=0"` // 0 means retry forever
	DefaultLocation     string        `koanf:"default_location"`
	LogLevel            string        `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogJSON             bool          `koanf:"log_json"`
	HealthAttempts      int           `koanf:"health_attempts" validate:"min=1"`
}

// DefaultConfig returns the settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		BaseURL:             "http://127.0.0.1:8000",
		PollInterval:        2 * time.Second,
		ConfidenceThreshold: 75,
		MaxIterations:       2,
		DaysAhead:           30,
		DefaultLocation:     "Your Farm",
		LogLevel:            "info",
		HealthAttempts:      5,
	}
}

// EffectiveRequestTimeout bounds every backend call. A hung request counts
// as a transient failure once it exceeds this.
func (c Config) EffectiveRequestTimeout() time.Duration {
	if c.RequestTimeout > 0 {
		return c.RequestTimeout
	}
	return c.PollInterval
}

// LoadConfig merges defaults with environment variables carrying prefix.
// For example FORECASTCTL_POLL_INTERVAL=500ms sets poll_interval.
func LoadConfig(prefix string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}
	if prefix != "" {
		if err := k.Load(env.Provider(".", env.Opt{
			Prefix: prefix,
			TransformFunc: func(key, value string) (string, any) {
				return strings.ToLower(strings.TrimPrefix(key, prefix)), value
			},
		}), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and formats of every setting.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
