// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - The "status" command.
//
// A fresh process has no session of its own, so status reports the
// configured policy, the refresh tokens the local registry still holds, and,
// when the ops endpoint is enabled, the running console's live snapshot.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/morganforge/chitfund-console/internal/auth"
	"github.com/morganforge/chitfund-console/internal/config"
	"github.com/morganforge/chitfund-console/internal/server"
	"github.com/morganforge/chitfund-console/internal/session"
	"github.com/morganforge/chitfund-console/internal/ui/components"
	"github.com/morganforge/chitfund-console/internal/ui/styles"
)

// statusTimeout bounds the request to a running console.
const statusTimeout = 2 * time.Second

// =============================================================================
// STATUS DATA
// =============================================================================

// PolicyData is the configured session policy.
type PolicyData struct {
	SessionDuration string `json:"session_duration"`
	WarningWindow   string `json:"warning_window"`
	PollInterval    string `json:"poll_interval"`
}

// StatusData is the result of the status command.
type StatusData struct {
	ConfigPath string                  `json:"config_path"`
	Policy     PolicyData              `json:"policy"`
	Endpoint   string                  `json:"endpoint,omitempty"`
	Reachable  bool                    `json:"reachable"`
	Session    *server.SessionResponse `json:"session,omitempty"`
	Error      string                  `json:"error,omitempty"`

	// UnrevokedTokens is nil when the registry does not exist yet.
	UnrevokedTokens *int   `json:"unrevoked_tokens,omitempty"`
	RegistryError   string `json:"registry_error,omitempty"`
}

// CollectStatus builds the status report. An unreachable console is reported
// in the data, not as an error.
func CollectStatus(ctx context.Context, cfg *config.Config, path string, client *http.Client) StatusData {
	policy := cfg.SessionPolicy()
	data := StatusData{
		ConfigPath: path,
		Policy: PolicyData{
			SessionDuration: policy.SessionDuration.String(),
			WarningWindow:   policy.WarningWindow.String(),
			PollInterval:    cfg.Session.PollInterval.String(),
		},
	}

	if n, err := countUnrevoked(ctx, cfg.Auth.TokenDBPath); err == nil {
		data.UnrevokedTokens = &n
	} else if !errors.Is(err, fs.ErrNotExist) {
		data.RegistryError = err.Error()
	}

	if !cfg.Metrics.Enabled || cfg.Metrics.ListenAddr == "" {
		return data
	}

	data.Endpoint = "http://" + cfg.Metrics.ListenAddr + "/session"
	resp, err := fetchSession(ctx, client, data.Endpoint)
	if err != nil {
		data.Error = err.Error()
		return data
	}
	data.Reachable = true
	data.Session = resp
	return data
}

// countUnrevoked counts live refresh tokens across all users. A registry
// that was never created is reported as fs.ErrNotExist rather than created.
func countUnrevoked(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, fs.ErrNotExist
	}
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}
	reg, err := auth.OpenRegistry(path)
	if err != nil {
		return 0, err
	}
	defer reg.Close()
	return reg.ActiveCount(ctx, "")
}

func fetchSession(ctx context.Context, client *http.Client, url string) (*server.SessionResponse, error) {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("console not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("console returned %s", resp.Status)
	}
	var out server.SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &out, nil
}

// =============================================================================
// OUTPUT
// =============================================================================

// HandleStatus handles the "status" command.
func HandleStatus(ctx context.Context, w io.Writer, args Args, cfg *config.Config, client *http.Client) error {
	path, err := ResolveConfigPath(args)
	if err != nil {
		return err
	}
	data := CollectStatus(ctx, cfg, path, client)
	if args.JSON {
		return NewJSONResponse("status", data).Fprint(w)
	}
	printStatus(w, data)
	return nil
}

func printStatus(w io.Writer, data StatusData) {
	fmt.Fprintln(w, "Session policy")
	fmt.Fprintf(w, "  Duration:       %s\n", data.Policy.SessionDuration)
	fmt.Fprintf(w, "  Warning window: %s\n", data.Policy.WarningWindow)
	fmt.Fprintf(w, "  Poll interval:  %s\n", data.Policy.PollInterval)
	fmt.Fprintf(w, "  Config:         %s\n", data.ConfigPath)
	switch {
	case data.UnrevokedTokens != nil:
		fmt.Fprintf(w, "  Live tokens:    %d\n", *data.UnrevokedTokens)
	case data.RegistryError != "":
		fmt.Fprintf(w, "  Live tokens:    %s\n", styles.RenderError(data.RegistryError))
	}
	fmt.Fprintln(w)

	switch {
	case data.Endpoint == "":
		fmt.Fprintln(w, styles.RenderInfo("Ops endpoint disabled; enable [metrics] to query a running console"))
	case !data.Reachable:
		fmt.Fprintln(w, styles.RenderWarning("No running console at "+data.Endpoint))
	default:
		printSessionResponse(w, data.Session)
	}
}

func printSessionResponse(w io.Writer, s *server.SessionResponse) {
	if s.UserID == "" {
		fmt.Fprintln(w, styles.RenderInfo("Running console has no session"))
		return
	}
	remaining := time.Duration(s.TimeRemainingSec) * time.Second
	line := fmt.Sprintf("%s (%s) %s, %s left", s.UserID, s.Role, s.Phase, components.FormatTimeRemaining(remaining))
	switch s.Phase {
	case session.PhaseActive.String():
		fmt.Fprintln(w, styles.RenderSuccess(line))
	case session.PhaseWarning.String():
		fmt.Fprintln(w, styles.RenderWarning(line))
	default:
		fmt.Fprintln(w, styles.RenderError(line))
	}
}
