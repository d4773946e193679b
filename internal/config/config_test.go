// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganforge/chitfund-console/internal/session"
)

// isolate points HOME at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, k := range []string{
		"CHITFUND_SESSION_DURATION", "CHITFUND_WARNING_WINDOW", "CHITFUND_POLL_INTERVAL",
		"CHITFUND_REVOKE_URL", "CHITFUND_TOKEN_DB", "CHITFUND_AUDIT",
	} {
		t.Setenv(k, "")
	}
	return home
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, session.DefaultPolicy(), cfg.SessionPolicy())
	assert.Equal(t, time.Minute, cfg.Session.PollInterval)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.Session.Duration)
	assert.Equal(t, filepath.Join(home, ".chitfund", "tokens.db"), cfg.Auth.TokenDBPath)
	assert.Equal(t, filepath.Join(home, ".chitfund", "audit.log"), cfg.Security.AuditLogPath)
}

func TestLoad_TOML(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "custom.toml")
	writeConfig(t, path, `
[session]
duration = "45m"
warning_window = "10m"
poll_interval = "30s"

[auth]
revoke_url = "https://api.example.org/auth/revoke"
token_db_path = "/var/lib/chitfund/tokens.db"

[ui]
theme = "dark"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, cfg.Session.Duration)
	assert.Equal(t, 10*time.Minute, cfg.Session.WarningWindow)
	assert.Equal(t, 30*time.Second, cfg.Session.PollInterval)
	assert.Equal(t, session.DefaultRevokeTimeout, cfg.Session.RevokeTimeout, "unset keys keep defaults")
	assert.Equal(t, "https://api.example.org/auth/revoke", cfg.Auth.RevokeURL)
	assert.Equal(t, "/var/lib/chitfund/tokens.db", cfg.Auth.TokenDBPath)
	assert.Equal(t, "dark", cfg.UI.Theme)
}

func TestLoad_EnvOverridesWin(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.toml")
	writeConfig(t, path, "[session]\nduration = \"45m\"\n")

	t.Setenv("CHITFUND_SESSION_DURATION", "20m")
	t.Setenv("CHITFUND_WARNING_WINDOW", "2m")
	t.Setenv("CHITFUND_POLL_INTERVAL", "not-a-duration")
	t.Setenv("CHITFUND_AUDIT", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Minute, cfg.Session.Duration)
	assert.Equal(t, 2*time.Minute, cfg.Session.WarningWindow)
	assert.Equal(t, time.Minute, cfg.Session.PollInterval, "bad values are ignored")
	assert.False(t, cfg.Security.AuditEnabled)
	assert.Empty(t, cfg.Security.AuditLogPath)
}

func TestLoad_RejectsWarningNotShorterThanDuration(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.toml")
	writeConfig(t, path, "[session]\nduration = \"5m\"\nwarning_window = \"5m\"\n")

	_, err := Load(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, "session.warning_window", verrs[0].Field)
	assert.Contains(t, verrs[0].Message, "shorter than session.duration")
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Session.PollInterval = 10 * time.Millisecond
	cfg.Auth.RevokeURL = "::not a url"
	cfg.Metrics.ListenAddr = "nowhere"
	cfg.UI.Theme = "neon"

	err := cfg.Validate()
	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)

	fields := make(map[string]bool)
	for _, e := range verrs {
		fields[e.Field] = true
	}
	assert.True(t, fields["session.poll_interval"])
	assert.True(t, fields["auth.revoke_url"])
	assert.True(t, fields["metrics.listen_addr"])
	assert.True(t, fields["ui.theme"])
}

func TestLoad_DecodeError(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.toml")
	writeConfig(t, path, "[session\nduration = ")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "out", "config.toml")

	cfg := Default()
	cfg.Session.Duration = time.Hour
	cfg.Session.WarningWindow = 15 * time.Minute
	cfg.Auth.RevokeURL = "https://api.example.org/revoke"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, loaded.Session.Duration)
	assert.Equal(t, 15*time.Minute, loaded.Session.WarningWindow)
	assert.Equal(t, cfg.Auth.RevokeURL, loaded.Auth.RevokeURL)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

// =============================================================================
// WATCHER TESTS
// =============================================================================

func TestWatcher_ReloadsOnChange(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.toml")
	writeConfig(t, path, "[session]\nduration = \"30m\"\n")

	changes := make(chan *Config, 4)
	w := NewWatcher(path, func(c *Config) { changes <- c }, nil)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	// Give the watcher a moment to register before writing
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, path, "[session]\nduration = \"40m\"\n")

	// A truncate-then-write may surface an intermediate reload first
	deadline := time.After(5 * time.Second)
	for seen := false; !seen; {
		select {
		case c := <-changes:
			seen = c.Session.Duration == 40*time.Minute
		case <-deadline:
			t.Fatal("watcher did not report the change")
		}
	}

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
}

func TestWatcher_ReportsInvalidConfig(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.toml")
	writeConfig(t, path, "")

	errs := make(chan error, 4)
	applied := make(chan *Config, 4)
	w := NewWatcher(path, func(c *Config) { applied <- c }, func(err error) { errs <- err })
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	writeConfig(t, path, "[session]\nduration = \"1m\"\nwarning_window = \"2m\"\n")

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the error")
	}

	for len(applied) > 0 {
		c := <-applied
		assert.NotEqual(t, time.Minute, c.Session.Duration, "invalid config must not be applied")
	}
}
