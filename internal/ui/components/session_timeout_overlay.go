// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/chitfund-console/internal/session"
	"github.com/morganforge/chitfund-console/internal/ui/styles"
)

// =============================================================================
// SESSION TIMEOUT OVERLAY
// =============================================================================

// SessionTimeoutOverlay renders the warning dialog while a session is in its
// warning window and the "session expired" notice once it has lapsed. It is
// driven entirely by snapshots; it keeps no timers of its own.
type SessionTimeoutOverlay struct {
	info session.Info

	width  int
	height int
}

// NewSessionTimeoutOverlay creates a hidden overlay.
func NewSessionTimeoutOverlay() SessionTimeoutOverlay {
	return SessionTimeoutOverlay{}
}

// =============================================================================
// STATE MANAGEMENT
// =============================================================================

// SetSize sets the overlay dimensions.
func (o *SessionTimeoutOverlay) SetSize(width, height int) {
	o.width = width
	o.height = height
}

// SetSnapshot replaces the session state the overlay renders.
func (o *SessionTimeoutOverlay) SetSnapshot(info session.Info) {
	o.info = info
}

// IsVisible reports whether the overlay covers the screen.
func (o SessionTimeoutOverlay) IsVisible() bool {
	return o.info.Phase == session.PhaseWarning || o.info.Phase == session.PhaseExpired
}

// IsExpired reports whether the expired notice is showing.
func (o SessionTimeoutOverlay) IsExpired() bool {
	return o.info.Phase == session.PhaseExpired
}

// TimeRemaining returns the countdown from the last snapshot.
func (o SessionTimeoutOverlay) TimeRemaining() time.Duration {
	return o.info.TimeRemaining
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// ExtendRequestMsg asks the owner to extend the session. Any key pressed
// while the warning dialog is showing produces it.
type ExtendRequestMsg struct{}

// SignInRequestMsg asks the owner to end the expired session and return to
// the login prompt.
type SignInRequestMsg struct{}

// Init initializes the overlay (no-op for overlays).
func (o SessionTimeoutOverlay) Init() tea.Cmd {
	return nil
}

// Update handles messages for the overlay.
func (o SessionTimeoutOverlay) Update(msg tea.Msg) (SessionTimeoutOverlay, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		o.width = msg.Width
		o.height = msg.Height

	case tea.KeyMsg:
		switch o.info.Phase {
		case session.PhaseWarning:
			return o, func() tea.Msg { return ExtendRequestMsg{} }
		case session.PhaseExpired:
			if msg.Type == tea.KeyEnter {
				return o, func() tea.Msg { return SignInRequestMsg{} }
			}
		}
	}
	return o, nil
}

// View renders the overlay, or "" when hidden.
func (o SessionTimeoutOverlay) View() string {
	switch o.info.Phase {
	case session.PhaseWarning:
		return o.viewWarning()
	case session.PhaseExpired:
		return o.viewExpired()
	default:
		return ""
	}
}

// =============================================================================
// RENDER METHODS
// =============================================================================

func (o SessionTimeoutOverlay) dimensions() (width, height, boxWidth int) {
	width, height = o.width, o.height
	if width == 0 {
		width = 60
	}
	if height == 0 {
		height = 24
	}
	boxWidth = width - 8
	if boxWidth < 40 {
		boxWidth = 40
	}
	if boxWidth > 60 {
		boxWidth = 60
	}
	return width, height, boxWidth
}

func (o SessionTimeoutOverlay) viewWarning() string {
	width, height, boxWidth := o.dimensions()

	accent := lipgloss.NewStyle().Foreground(styles.Amber).Bold(true)
	msgStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(boxWidth - 8).
		Align(lipgloss.Center)
	hintStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Italic(true)

	content := lipgloss.JoinVertical(lipgloss.Center,
		accent.Render(styles.StatusIndicators.Warning+" Session Expiring"),
		"",
		msgStyle.Render("Your session will expire in "+accent.Render(FormatTimeRemaining(o.info.TimeRemaining))),
		"",
		hintStyle.Render("Press any key to stay signed in"),
	)

	return o.place(width, height, boxWidth, styles.Amber, content)
}

func (o SessionTimeoutOverlay) viewExpired() string {
	width, height, boxWidth := o.dimensions()

	accent := lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
	msgStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(boxWidth - 8).
		Align(lipgloss.Center)
	hintStyle := lipgloss.NewStyle().Foreground(styles.TextSecondary)

	content := lipgloss.JoinVertical(lipgloss.Center,
		accent.Render(styles.StatusIndicators.Error+" Session Expired"),
		"",
		msgStyle.Render("Your session has timed out."),
		"",
		hintStyle.Render("Press enter to sign in again, ctrl+e to resume"),
	)

	return o.place(width, height, boxWidth, styles.Rose, content)
}

func (o SessionTimeoutOverlay) place(width, height, boxWidth int, border lipgloss.AdaptiveColor, content string) string {
	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(border).
		Padding(1, 3).
		Width(boxWidth).
		Align(lipgloss.Center).
		Render(content)

	return lipgloss.Place(
		width, height,
		lipgloss.Center, lipgloss.Center,
		box,
		lipgloss.WithWhitespaceBackground(styles.SurfaceDim),
	)
}
