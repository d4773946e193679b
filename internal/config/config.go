// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/morganforge/chitfund-console/internal/session"
	"github.com/morganforge/chitfund-console/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete console configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Session  SessionConfig  `toml:"session" json:"session"`
	Auth     AuthConfig     `toml:"auth" json:"auth"`
	Security SecurityConfig `toml:"security" json:"security"`
	Metrics  MetricsConfig  `toml:"metrics" json:"metrics"`
	UI       UIConfig       `toml:"ui" json:"ui"`
}

// SessionConfig holds the session lifecycle policy.
type SessionConfig struct {
	// Duration is the full session horizon after login or extend (default: 30m)
	Duration time.Duration `toml:"duration" json:"duration" validate:"gt=0"`
	// WarningWindow is how long before expiry the warning dialog appears (default: 5m)
	WarningWindow time.Duration `toml:"warning_window" json:"warning_window" validate:"gt=0,ltfield=Duration"`
	// PollInterval is how often the UI takes a snapshot (default: 1m)
	PollInterval time.Duration `toml:"poll_interval" json:"poll_interval" validate:"gte=1s"`
	// RevokeTimeout bounds one best-effort revocation call (default: 10s)
	RevokeTimeout time.Duration `toml:"revoke_timeout" json:"revoke_timeout" validate:"gt=0"`
}

// AuthConfig points the console at its auth collaborator.
type AuthConfig struct {
	// TokenDBPath is the SQLite refresh-token registry (default: ~/.chitfund/tokens.db)
	TokenDBPath string `toml:"token_db_path" json:"token_db_path"`
	// RevokeURL is the remote revoke endpoint; empty means local-only revocation
	RevokeURL string `toml:"revoke_url" json:"revoke_url" validate:"omitempty,url"`
	// RevokeRatePerSec limits outgoing revocations (default: 2)
	RevokeRatePerSec float64 `toml:"revoke_rate_per_sec" json:"revoke_rate_per_sec" validate:"gte=0"`
	// RevokeBurst is the limiter burst (default: 5)
	RevokeBurst int `toml:"revoke_burst" json:"revoke_burst" validate:"gte=0"`
}

// SecurityConfig contains audit settings.
type SecurityConfig struct {
	// AuditEnabled writes session events to the audit log
	AuditEnabled bool `toml:"audit_enabled" json:"audit_enabled"`
	// AuditLogPath is the JSON-lines audit log (empty = ~/.chitfund/audit.log)
	AuditLogPath string `toml:"audit_log_path" json:"audit_log_path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `toml:"enabled" json:"enabled"`
	ListenAddr string `toml:"listen_addr" json:"listen_addr" validate:"omitempty,hostname_port"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme is "auto", "dark" or "light"
	Theme string `toml:"theme" json:"theme" validate:"oneof=auto dark light"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Session: SessionConfig{
			Duration:      session.DefaultSessionDuration,
			WarningWindow: session.DefaultWarningWindow,
			PollInterval:  session.DefaultPollInterval,
			RevokeTimeout: session.DefaultRevokeTimeout,
		},
		Auth: AuthConfig{
			RevokeRatePerSec: 2,
			RevokeBurst:      5,
		},
		Security: SecurityConfig{
			AuditEnabled: true,
		},
		Metrics: MetricsConfig{
			ListenAddr: "127.0.0.1:9464",
		},
		UI: UIConfig{
			Theme: "auto",
		},
	}
}

// SessionPolicy returns the manager policy described by the config.
func (c *Config) SessionPolicy() session.Policy {
	return session.Policy{
		SessionDuration: c.Session.Duration,
		WarningWindow:   c.Session.WarningWindow,
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the console configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chitfund"), nil
}

// ConfigPath returns the default TOML config path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config at path (the default path when empty). A missing file
// is not an error: defaults are used. Environment overrides are applied last,
// then the result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.fillDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults resolves path fields that default to the config directory.
func (c *Config) fillDefaults() error {
	if c.Auth.TokenDBPath != "" && (!c.Security.AuditEnabled || c.Security.AuditLogPath != "") {
		return nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if c.Auth.TokenDBPath == "" {
		c.Auth.TokenDBPath = filepath.Join(dir, "tokens.db")
	}
	if c.Security.AuditEnabled && c.Security.AuditLogPath == "" {
		c.Security.AuditLogPath = filepath.Join(dir, "audit.log")
	}
	return nil
}

// Save writes cfg to path as TOML with 0600 permissions.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# chit-fund console configuration")
	fmt.Fprintln(&buf, "")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - CHITFUND_SESSION_DURATION: session.duration (Go duration)
//   - CHITFUND_WARNING_WINDOW: session.warning_window
//   - CHITFUND_POLL_INTERVAL: session.poll_interval
//   - CHITFUND_REVOKE_URL: auth.revoke_url
//   - CHITFUND_TOKEN_DB: auth.token_db_path
//   - CHITFUND_AUDIT: "0"/"false" disables the audit log
//
// Unparseable values are ignored.
func (c *Config) ApplyEnvOverrides() {
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	setDuration("CHITFUND_SESSION_DURATION", &c.Session.Duration)
	setDuration("CHITFUND_WARNING_WINDOW", &c.Session.WarningWindow)
	setDuration("CHITFUND_POLL_INTERVAL", &c.Session.PollInterval)

	if v := os.Getenv("CHITFUND_REVOKE_URL"); v != "" {
		c.Auth.RevokeURL = v
	}
	if v := os.Getenv("CHITFUND_TOKEN_DB"); v != "" {
		c.Auth.TokenDBPath = v
	}
	if v := os.Getenv("CHITFUND_AUDIT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Security.AuditEnabled = b
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their TOML key
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration and returns ValidateErrors on failure.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	errs := make(ValidateErrors, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, ValidationError{
			Field:   strings.TrimPrefix(fe.Namespace(), "Config."),
			Message: describe(fe),
		})
	}
	return errs
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "ltfield":
		return "must be shorter than session.duration"
	case "url":
		return "must be a valid URL"
	case "hostname_port":
		return "must be host:port"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
