// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/chitfund-console/internal/auth"
	"github.com/morganforge/chitfund-console/internal/session"
	"github.com/morganforge/chitfund-console/internal/ui/components"
	"github.com/morganforge/chitfund-console/internal/ui/styles"
)

// issueTimeout bounds one refresh-token issue call.
const issueTimeout = 5 * time.Second

// ErrSignInUnavailable is returned when the shell has no token issuer.
var ErrSignInUnavailable = errors.New("sign-in is not available")

// Issuer hands out refresh-token IDs for a signed-in identity.
type Issuer interface {
	Issue(ctx context.Context, id auth.Identity) (string, error)
}

// Options configures the shell.
type Options struct {
	Manager      *session.Manager // required
	Issuer       Issuer
	PollInterval time.Duration
	Theme        *styles.Theme

	// OnPhaseChange is called when a poll observes a new phase.
	OnPhaseChange func(from, to session.Phase, info session.Info)
	// OnSnapshot is called after every poll.
	OnSnapshot func(session.Info)

	Logger *slog.Logger
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the layout shell: header, body (login prompt, session summary or
// timeout overlay), status bar and help line.
type Model struct {
	mgr      *session.Manager
	issuer   Issuer
	poller   *session.Poller
	interval time.Duration
	logger   *slog.Logger

	theme   *styles.Theme
	header  *components.Header
	status  *components.StatusBar
	overlay components.SessionTimeoutOverlay
	login   textinput.Model
	keys    KeyMap
	help    help.Model

	info      session.Info
	err       error
	notice    string
	signingIn bool
	quitting  bool

	width  int
	height int
}

// loginResultMsg carries the outcome of a token issue.
type loginResultMsg struct {
	identity auth.Identity
	token    string
	err      error
}

// New creates the shell model and takes an initial snapshot.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ModeAuto)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "name [admin|agent|member]"
	ti.CharLimit = 128
	ti.Focus()

	poller := session.NewPoller(opts.Manager, opts.PollInterval, opts.OnSnapshot)
	if opts.OnPhaseChange != nil {
		poller.OnPhaseChange(opts.OnPhaseChange)
	}

	m := Model{
		mgr:      opts.Manager,
		issuer:   opts.Issuer,
		poller:   poller,
		interval: poller.Interval(),
		logger:   logger,
		theme:    theme,
		header:   components.NewHeader(theme),
		status:   components.NewStatusBar(theme),
		overlay:  components.NewSessionTimeoutOverlay(),
		login:    ti,
		keys:     DefaultKeyMap(),
		help:     help.New(),
	}
	m.setSize(80, 24)
	m.refresh()
	return m
}

// Init starts cursor blink and the polling chain.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, session.TickCmd(m.interval))
}

// Snapshot returns the session state from the last poll.
func (m Model) Snapshot() session.Info {
	return m.info
}

// Quitting reports whether the shell has asked the program to exit.
func (m Model) Quitting() bool {
	return m.quitting
}

// =============================================================================
// STATE HELPERS
// =============================================================================

func (m *Model) setSize(width, height int) {
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)
	m.header.SetWidth(width)
	m.status.SetWidth(width)
	m.help.Width = width
	// header + status bar + help line
	bodyHeight := height - 3
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	m.overlay.SetSize(width, bodyHeight)
	m.login.Width = 32
}

// refresh polls the manager and pushes the snapshot into every component.
func (m *Model) refresh() {
	info := m.poller.Poll()
	m.info = info
	m.overlay.SetSnapshot(info)
	m.status.SetSnapshot(info)
	m.status.SetHorizon(m.mgr.Policy().SessionDuration)
	m.header.SetUser(info.User)
	if !info.HasSession() && !m.login.Focused() {
		m.login.Focus()
	}
}

// parseLogin reads "name [role]" from the login prompt.
func parseLogin(input string) (auth.Identity, error) {
	fields := strings.Fields(input)
	switch len(fields) {
	case 0:
		return auth.Identity{}, auth.ErrEmptyIdentity
	case 1, 2:
	default:
		return auth.Identity{}, fmt.Errorf("expected \"name [role]\", got %d words", len(fields))
	}

	role := auth.RoleMember
	if len(fields) == 2 {
		r, err := auth.ParseRole(fields[1])
		if err != nil {
			return auth.Identity{}, err
		}
		role = r
	}
	return auth.Identity{
		ID:   strings.ToLower(fields[0]),
		Name: fields[0],
		Role: role,
	}, nil
}

func (m Model) issueCmd(id auth.Identity) tea.Cmd {
	issuer := m.issuer
	return func() tea.Msg {
		if issuer == nil {
			return loginResultMsg{identity: id, err: ErrSignInUnavailable}
		}
		ctx, cancel := context.WithTimeout(context.Background(), issueTimeout)
		defer cancel()
		token, err := issuer.Issue(ctx, id)
		return loginResultMsg{identity: id, token: token, err: err}
	}
}
