// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// console.go - Line-mode console for the "console" command.
//
// The console drives the same session manager as the TUI, one command per
// line. It polls after every command, so phase changes (including the
// warning) are reported when the prompt comes back.
//
// Commands:
//   login <user> [role]   Sign in (role: admin, agent, member)
//   extend                Reset the session horizon
//   logout                Sign out and revoke the refresh token
//   status                Show the current session
//   wait <duration>       Sleep, then poll
//   help                  Show commands
//   quit, exit            Sign out and leave
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/morganforge/chitfund-console/internal/audit"
	"github.com/morganforge/chitfund-console/internal/auth"
	"github.com/morganforge/chitfund-console/internal/config"
	"github.com/morganforge/chitfund-console/internal/session"
	"github.com/morganforge/chitfund-console/internal/ui/components"
	"github.com/morganforge/chitfund-console/internal/ui/styles"
)

// issueTimeout bounds one refresh-token issue call.
const issueTimeout = 5 * time.Second

// ErrNoIssuer is returned by login when the console has no token issuer.
var ErrNoIssuer = errors.New("sign-in is not available")

// Issuer hands out refresh-token IDs for a signed-in identity.
type Issuer interface {
	Issue(ctx context.Context, id auth.Identity) (string, error)
}

// LineReader is the part of liner.State the console uses.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// ConsoleOptions configures a Console.
type ConsoleOptions struct {
	Manager *session.Manager // required
	Issuer  Issuer
	Out     io.Writer

	// OnPhaseChange and OnSnapshot are forwarded to the console's poller.
	OnPhaseChange func(from, to session.Phase, info session.Info)
	OnSnapshot    func(session.Info)

	// Sleep implements "wait"; defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	Logger *slog.Logger
}

// =============================================================================
// CONSOLE
// =============================================================================

// Console executes console commands against a session manager.
type Console struct {
	mgr    *session.Manager
	issuer Issuer
	poller *session.Poller
	out    io.Writer
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger
}

// NewConsole creates a console and takes an initial snapshot.
func NewConsole(opts ConsoleOptions) *Console {
	c := &Console{
		mgr:    opts.Manager,
		issuer: opts.Issuer,
		out:    opts.Out,
		sleep:  opts.Sleep,
		logger: opts.Logger,
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.poller = session.NewPoller(opts.Manager, 0, opts.OnSnapshot)
	hook := opts.OnPhaseChange
	c.poller.OnPhaseChange(func(from, to session.Phase, info session.Info) {
		c.announce(from, to, info)
		if hook != nil {
			hook(from, to, info)
		}
	})
	c.poller.Poll()
	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Prompt returns the input prompt, showing who is signed in and the time left.
func (c *Console) Prompt() string {
	info := c.mgr.Snapshot()
	if !info.HasSession() {
		return "chitfund> "
	}
	return fmt.Sprintf("chitfund [%s %s]> ", info.User.ID, components.FormatTimeRemaining(info.TimeRemaining))
}

// Exec runs one input line. It returns quit=true when the console should
// exit. Errors are user errors; the console keeps running after them.
func (c *Console) Exec(ctx context.Context, line string) (quit bool, err error) {
	p := NewArgParser(strings.Fields(line))
	cmd := strings.ToLower(p.Subcommand())

	// Every command ends with a poll so phase changes are announced
	defer c.poller.Poll()

	switch cmd {
	case "":
		return false, nil
	case "login", "signin":
		return false, c.login(ctx, p)
	case "extend":
		return false, c.extend()
	case "logout", "signout":
		c.logout()
		return false, nil
	case "status", "s":
		c.printStatus()
		return false, nil
	case "wait", "sleep":
		return false, c.wait(ctx, p)
	case "help", "?":
		fmt.Fprint(c.out, RenderMarkdown(consoleHelpMarkdown, GetTerminalWidth(), IsStdoutTTY()))
		return false, nil
	case "quit", "exit", "q":
		c.logout()
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q (type help)", cmd)
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

func (c *Console) login(ctx context.Context, p *ArgParser) error {
	if p.PositionalCount() < 2 || p.PositionalCount() > 3 {
		return errors.New("usage: login <user> [role]")
	}
	if c.mgr.Snapshot().IsActive {
		return errors.New("a session is already active; logout first")
	}

	role := auth.RoleMember
	if r := p.Positional(2); r != "" {
		parsed, err := auth.ParseRole(r)
		if err != nil {
			return err
		}
		role = parsed
	}
	name := p.Positional(1)
	id := auth.Identity{ID: strings.ToLower(name), Name: name, Role: role}

	if c.issuer == nil {
		return ErrNoIssuer
	}
	ictx, cancel := context.WithTimeout(ctx, issueTimeout)
	defer cancel()
	token, err := c.issuer.Issue(ictx, id)
	if err != nil {
		c.logger.Warn("SIGN_IN_FAILED", "user", id.ID, "error", err)
		return fmt.Errorf("sign-in failed: %w", err)
	}

	if !session.EnsureStarted(c.mgr, id.SessionUser(), token) {
		c.logger.Info("SIGN_IN_SKIPPED", "user", id.ID, "token", audit.Fingerprint(token))
		return errors.New("a session is already active; logout first")
	}
	info := c.mgr.Snapshot()
	fmt.Fprintln(c.out, styles.RenderSuccess(fmt.Sprintf("Signed in as %s (%s) until %s",
		components.DisplayName(info.User), info.User.Role, info.ExpiresAt.Local().Format("15:04:05"))))
	return nil
}

func (c *Console) extend() error {
	if !c.mgr.Snapshot().HasSession() {
		return errors.New("not signed in")
	}
	c.mgr.Extend()
	info := c.mgr.Snapshot()
	fmt.Fprintln(c.out, styles.RenderSuccess("Session extended until "+info.ExpiresAt.Local().Format("15:04:05")))
	return nil
}

func (c *Console) logout() {
	if !c.mgr.Snapshot().HasSession() {
		return
	}
	c.mgr.Logout()
	fmt.Fprintln(c.out, styles.RenderInfo("Signed out"))
}

func (c *Console) wait(ctx context.Context, p *ArgParser) error {
	arg := p.Positional(1)
	if arg == "" {
		return errors.New("usage: wait <duration>")
	}
	d, err := time.ParseDuration(arg)
	if err != nil || d < 0 {
		return fmt.Errorf("invalid duration %q", arg)
	}
	return c.sleep(ctx, d)
}

func (c *Console) printStatus() {
	info := c.mgr.Snapshot()
	if !info.HasSession() {
		fmt.Fprintln(c.out, styles.RenderInfo("Not signed in"))
		return
	}
	fmt.Fprintf(c.out, "%s %s (%s)\n", components.PhaseIndicator(info.Phase), components.DisplayName(info.User), info.User.Role)
	fmt.Fprintf(c.out, "  Phase:     %s\n", info.Phase)
	fmt.Fprintf(c.out, "  Started:   %s\n", info.StartedAt.Local().Format("15:04:05"))
	fmt.Fprintf(c.out, "  Expires:   %s\n", info.ExpiresAt.Local().Format("15:04:05"))
	fmt.Fprintf(c.out, "  Remaining: %s\n", components.FormatTimeRemaining(info.TimeRemaining))
}

// announce reports phase changes observed by the poller.
func (c *Console) announce(_, to session.Phase, info session.Info) {
	switch to {
	case session.PhaseWarning:
		fmt.Fprintln(c.out, styles.RenderWarning(fmt.Sprintf(
			"Your session will expire in %s. Type 'extend' to stay signed in.",
			components.FormatTimeRemaining(info.TimeRemaining))))
	case session.PhaseExpired:
		fmt.Fprintln(c.out, styles.RenderError("Session expired. Type 'logout' and sign in again, or 'extend'."))
	}
}

// =============================================================================
// REPL
// =============================================================================

// Run reads lines from r until quit, EOF, ctrl+c or ctx is done.
func (c *Console) Run(ctx context.Context, r LineReader) error {
	fmt.Fprintln(c.out, "chitfund-console "+Version+". Type 'help' for commands.")
	for {
		if ctx.Err() != nil {
			c.logout()
			return nil
		}
		line, err := r.Prompt(c.Prompt())
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				c.logout()
				return nil
			}
			return err
		}
		if strings.TrimSpace(line) != "" {
			r.AppendHistory(line)
		}

		quit, err := c.Exec(ctx, line)
		if err != nil {
			fmt.Fprintln(c.out, styles.RenderError(err.Error()))
		}
		if quit {
			return nil
		}
	}
}

// RunConsole runs the console on the terminal with liner line editing and
// history kept in the config directory.
func RunConsole(ctx context.Context, opts ConsoleOptions) error {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	historyFile := ""
	if dir, err := config.ConfigDir(); err == nil {
		historyFile = filepath.Join(dir, "console_history")
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	err := NewConsole(opts).Run(ctx, line)

	if historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(historyFile), 0700); err == nil {
			if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}
	}
	return err
}
