// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/chitfund-console/internal/session"
	"github.com/morganforge/chitfund-console/internal/ui/styles"
	"github.com/morganforge/chitfund-console/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT - session widget at the bottom of the shell
// =============================================================================

// StatusBar shows who is signed in, the session phase and the time left.
type StatusBar struct {
	Info          session.Info
	Horizon       time.Duration // full session length, scales the countdown bar
	Width         int
	ShowShortcuts bool
	theme         *styles.Theme
}

// NewStatusBar creates a StatusBar using theme.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Horizon:       session.DefaultSessionDuration,
		Width:         80,
		ShowShortcuts: true,
		theme:         theme,
	}
}

// SetWidth sets the available width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetSnapshot updates the rendered session state.
func (s *StatusBar) SetSnapshot(info session.Info) {
	s.Info = info
}

// SetHorizon sets the session length used to scale the countdown bar.
func (s *StatusBar) SetHorizon(d time.Duration) {
	if d > 0 {
		s.Horizon = d
	}
}

// View renders the bar for the current width.
func (s *StatusBar) View() string {
	var content string
	switch {
	case s.Width < 60:
		content = s.viewNarrow()
	case s.Width < 100:
		content = s.viewMedium()
	default:
		content = s.viewWide()
	}
	return s.theme.StatusBar.Width(s.Width).Render(content)
}

// inner is the content width left after the bar's horizontal padding.
func (s *StatusBar) inner() int {
	if s.Width <= 2 {
		return 0
	}
	return s.Width - 2
}

func (s *StatusBar) viewNarrow() string {
	left := PhaseIndicator(s.Info.Phase) + " " + s.Info.Phase.String()
	if s.Info.HasSession() {
		left += " " + FormatTimeRemaining(s.Info.TimeRemaining)
	}
	return util.TruncateWidth(left, s.inner())
}

func (s *StatusBar) viewMedium() string {
	if !s.Info.HasSession() {
		return s.join(PhaseBadge(s.theme, s.Info.Phase), s.theme.Label.Render("not signed in"))
	}
	left := PhaseBadge(s.theme, s.Info.Phase) + " " + s.renderUser(24)
	return s.join(left, s.renderRemaining())
}

func (s *StatusBar) viewWide() string {
	if !s.Info.HasSession() {
		return s.join(PhaseBadge(s.theme, s.Info.Phase)+" "+s.theme.Label.Render("not signed in"), s.renderShortcuts())
	}
	left := PhaseBadge(s.theme, s.Info.Phase) + " " + s.renderUser(32) + "  " + s.renderRemaining() + " " + s.renderCountdownBar(20)
	return s.join(left, s.renderShortcuts())
}

// join places right at the far end of the bar, dropping it when it won't fit.
func (s *StatusBar) join(left, right string) string {
	gap := s.inner() - lipgloss.Width(left) - lipgloss.Width(right)
	if right == "" || gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

func (s *StatusBar) renderUser(maxWidth int) string {
	name := util.TruncateWidth(DisplayName(s.Info.User), maxWidth)
	out := s.theme.Value.Render(name)
	if s.Info.User.Role != "" {
		out += " " + s.theme.Role.Render("("+s.Info.User.Role+")")
	}
	return out
}

func (s *StatusBar) renderRemaining() string {
	if s.Info.Phase == session.PhaseExpired {
		return s.theme.ErrorText.Render("expired")
	}
	return s.theme.Value.Render(FormatTimeRemaining(s.Info.TimeRemaining)) + s.theme.Label.Render(" left")
}

func (s *StatusBar) renderCountdownBar(width int) string {
	frac := 0.0
	if s.Horizon > 0 {
		frac = float64(s.Info.TimeRemaining) / float64(s.Horizon)
	}
	return s.theme.Label.Render("[" + styles.RenderProgressBar(width, frac) + "]")
}

func (s *StatusBar) renderShortcuts() string {
	if !s.ShowShortcuts {
		return ""
	}
	if s.Info.HasSession() {
		return s.theme.Hint.Render("ctrl+e extend  ctrl+l logout  ? help")
	}
	return s.theme.Hint.Render("? help")
}
