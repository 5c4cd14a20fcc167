package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [Validate] when a field is left zero.
const (
	DefaultBackendTimeout       = 30 * time.Second
	DefaultBreakerMaxFailures   = 5
	DefaultBreakerResetTimeout  = 30 * time.Second
	DefaultSessionIdleTTL       = 2 * time.Hour
	DefaultSessionSweepInterval = 5 * time.Minute
	DefaultPhoneticThreshold    = 0.70
	DefaultFuzzyThreshold       = 0.85
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, validates the result, and
// fills in defaults. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Backend
	if cfg.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	}
	if cfg.Backend.Timeout < 0 {
		errs = append(errs, fmt.Errorf("backend.timeout %s must not be negative", cfg.Backend.Timeout))
	}
	if cfg.Backend.Breaker.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("backend.breaker.max_failures %d must not be negative", cfg.Backend.Breaker.MaxFailures))
	}

	// Sessions
	if cfg.Sessions.IdleTTL < 0 {
		errs = append(errs, fmt.Errorf("sessions.idle_ttl %s must not be negative", cfg.Sessions.IdleTTL))
	}
	if cfg.Sessions.SweepInterval < 0 {
		errs = append(errs, fmt.Errorf("sessions.sweep_interval %s must not be negative", cfg.Sessions.SweepInterval))
	}

	// Suggest thresholds live in [0, 1].
	if t := cfg.Suggest.PhoneticThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("suggest.phonetic_threshold %.2f is out of range [0, 1]", t))
	}
	if t := cfg.Suggest.FuzzyThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("suggest.fuzzy_threshold %.2f is out of range [0, 1]", t))
	}
	if cfg.Suggest.OpenAI != nil {
		if cfg.Suggest.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("suggest.openai.api_key is required when openai is set"))
		}
		if cfg.Suggest.OpenAI.Model == "" {
			errs = append(errs, errors.New("suggest.openai.model is required when openai is set"))
		}
	}

	return errors.Join(errs...)
}

// applyDefaults fills zero-valued fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = DefaultBackendTimeout
	}
	if cfg.Backend.Breaker.MaxFailures == 0 {
		cfg.Backend.Breaker.MaxFailures = DefaultBreakerMaxFailures
	}
	if cfg.Backend.Breaker.ResetTimeout == 0 {
		cfg.Backend.Breaker.ResetTimeout = DefaultBreakerResetTimeout
	}
	if cfg.Sessions.IdleTTL == 0 {
		cfg.Sessions.IdleTTL = DefaultSessionIdleTTL
	}
	if cfg.Sessions.SweepInterval == 0 {
		cfg.Sessions.SweepInterval = DefaultSessionSweepInterval
	}
	if cfg.Suggest.PhoneticThreshold == 0 {
		cfg.Suggest.PhoneticThreshold = DefaultPhoneticThreshold
	}
	if cfg.Suggest.FuzzyThreshold == 0 {
		cfg.Suggest.FuzzyThreshold = DefaultFuzzyThreshold
	}
}
