// chitfund-console - session console for the chit-fund admin client.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/morganforge/chitfund-console/internal/audit"
	"github.com/morganforge/chitfund-console/internal/auth"
	"github.com/morganforge/chitfund-console/internal/cli"
	"github.com/morganforge/chitfund-console/internal/config"
	"github.com/morganforge/chitfund-console/internal/metrics"
	"github.com/morganforge/chitfund-console/internal/server"
	"github.com/morganforge/chitfund-console/internal/session"
	"github.com/morganforge/chitfund-console/internal/ui/shell"
	"github.com/morganforge/chitfund-console/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args, err := cli.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	if err := run(cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd cli.Command, args cli.Args) error {
	// Commands that need no session
	switch cmd {
	case cli.CmdVersion:
		return cli.HandleVersion(os.Stdout, args)
	case cli.CmdConfig:
		return cli.HandleConfig(os.Stdout, args)
	}

	path, err := cli.ResolveConfigPath(args)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case cli.CmdHelp:
		return cli.HandleHelp(os.Stdout, cfg.Session.Duration, cfg.Session.WarningWindow)
	case cli.CmdStatus:
		return cli.HandleStatus(ctx, os.Stdout, args, cfg, nil)
	}

	useTUI := cmd == cli.CmdTUI && cli.CanRunTUI()
	logger, closeLog, err := newLogger(useTUI, args.Verbose)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	rt, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	rt.Start(ctx, path)

	if useTUI {
		return runTUI(rt, cfg)
	}
	if cmd == cli.CmdTUI {
		logger.Info("TUI_UNAVAILABLE", "reason", "not a terminal", "fallback", "console")
	}
	return cli.RunConsole(ctx, cli.ConsoleOptions{
		Manager:       rt.mgr,
		Issuer:        rt.registry,
		Out:           os.Stdout,
		OnPhaseChange: rt.onPhaseChange,
		OnSnapshot:    rt.metrics.ObserveSnapshot,
		Logger:        logger,
	})
}

// newLogger builds the process logger. The TUI owns the terminal, so its
// logs go to a file in the config directory instead of stderr.
func newLogger(tui, verbose bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if !tui {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), func() {}, nil
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "console.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open console log: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, opts)), func() { f.Close() }, nil
}

// =============================================================================
// APP
// =============================================================================

// app is the wired session manager and its collaborators.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	mgr      *session.Manager
	registry *auth.TokenRegistry
	audit    *audit.Logger
	metrics  *metrics.Metrics

	unsubscribe []func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	registry, err := auth.OpenRegistry(cfg.Auth.TokenDBPath)
	if err != nil {
		return nil, err
	}
	rt := &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		metrics:  metrics.New(prometheus.NewRegistry()),
	}

	// Local registry first, then the remote endpoint when configured
	revokers := auth.MultiRevoker{registry}
	if cfg.Auth.RevokeURL != "" {
		revokers = append(revokers, auth.NewHTTPRevoker(auth.HTTPRevokerConfig{
			URL:           cfg.Auth.RevokeURL,
			Timeout:       cfg.Session.RevokeTimeout,
			RatePerSecond: cfg.Auth.RevokeRatePerSec,
			Burst:         cfg.Auth.RevokeBurst,
		}))
	}
	var revoker session.Revoker = revokers

	if cfg.Security.AuditEnabled {
		al, err := audit.Open(cfg.Security.AuditLogPath)
		if err != nil {
			registry.Close()
			return nil, err
		}
		rt.audit = al
		revoker = al.WrapRevoker(revoker)
	}
	revoker = rt.metrics.InstrumentRevoker(revoker)

	rt.mgr = session.NewManager(cfg.SessionPolicy(),
		session.WithRevoker(revoker),
		session.WithRevokeTimeout(cfg.Session.RevokeTimeout),
		session.WithLogger(logger))

	rt.unsubscribe = append(rt.unsubscribe, rt.metrics.Observe(rt.mgr))
	if rt.audit != nil {
		rt.unsubscribe = append(rt.unsubscribe, rt.audit.Attach(rt.mgr))
	}
	return rt, nil
}

// onPhaseChange fans poller phase changes out to audit and metrics.
func (rt *app) onPhaseChange(from, to session.Phase, info session.Info) {
	if rt.audit != nil {
		rt.audit.RecordPhaseChange(from, to, info)
	}
	rt.metrics.ObservePhaseChange(from, to, info)
}

// Start launches the config watcher and, when enabled, the ops endpoint.
func (rt *app) Start(ctx context.Context, configPath string) {
	ctx, rt.cancel = context.WithCancel(ctx)

	w := config.NewWatcher(configPath, func(cfg *config.Config) {
		rt.mgr.SetPolicy(cfg.SessionPolicy())
		rt.logger.Info("CONFIG_RELOADED", "path", configPath,
			"duration", cfg.Session.Duration, "warning_window", cfg.Session.WarningWindow)
	}, func(err error) {
		rt.logger.Warn("CONFIG_RELOAD_FAILED", "path", configPath, "error", err)
	})
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			rt.logger.Warn("CONFIG_WATCH_STOPPED", "error", err)
		}
	}()

	if !rt.cfg.Metrics.Enabled {
		return
	}
	srv := server.NewServer(rt.cfg.Metrics.ListenAddr,
		server.WithSnapshotter(rt.mgr),
		server.WithMetricsHandler(rt.metrics.Handler()),
		server.WithLogger(rt.logger),
		server.WithVersion(Version))
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		if err := srv.Run(ctx); err != nil {
			rt.logger.Error("OPS_ENDPOINT_FAILED", "addr", srv.Addr(), "error", err)
		}
	}()
}

// Close signs out, waits for the revocation to finish and releases resources.
func (rt *app) Close() {
	rt.mgr.Logout()
	rt.mgr.Wait()

	if rt.cancel != nil {
		rt.cancel()
	}
	rt.wg.Wait()

	for _, fn := range rt.unsubscribe {
		fn()
	}
	if rt.audit != nil {
		rt.audit.Close()
	}
	if err := rt.registry.Close(); err != nil {
		rt.logger.Warn("REGISTRY_CLOSE_FAILED", "error", err)
	}
}

// =============================================================================
// TUI
// =============================================================================

func runTUI(rt *app, cfg *config.Config) error {
	model := shell.New(shell.Options{
		Manager:       rt.mgr,
		Issuer:        rt.registry,
		PollInterval:  cfg.Session.PollInterval,
		Theme:         styles.NewTheme(cfg.UI.Theme),
		OnPhaseChange: rt.onPhaseChange,
		OnSnapshot:    rt.metrics.ObserveSnapshot,
		Logger:        rt.logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
