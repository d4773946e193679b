// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package shell

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/chitfund-console/internal/ui/components"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the shell.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	bodyHeight := m.height - 3
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	var body string
	switch {
	case m.overlay.IsVisible():
		body = m.overlay.View()
	case !m.info.HasSession():
		body = m.viewLogin(bodyHeight)
	default:
		body = m.viewSession(bodyHeight)
	}

	var helpView string
	if m.info.HasSession() {
		helpView = m.help.View(m.keys)
	} else {
		helpView = m.help.View(loginKeys{m.keys})
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header.View(),
		body,
		m.status.View(),
		helpView,
	)
}

func (m Model) viewLogin(height int) string {
	lines := []string{
		m.theme.Prompt.Render("Sign in"),
		"",
		m.login.View(),
		"",
	}
	switch {
	case m.signingIn:
		lines = append(lines, m.theme.Hint.Render("Signing in..."))
	case m.err != nil:
		lines = append(lines, m.theme.ErrorText.Render("Error: "+m.err.Error()))
	case m.notice != "":
		lines = append(lines, m.theme.NoticeText.Render(m.notice))
	default:
		lines = append(lines, m.theme.Hint.Render("Enter your name and optional role"))
	}

	box := m.theme.LoginBox.Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) viewSession(height int) string {
	info := m.info
	lines := []string{
		m.theme.Label.Render("Signed in as ") + m.theme.Value.Render(components.DisplayName(info.User)) +
			" " + m.theme.Role.Render("("+info.User.Role+")"),
		m.theme.Label.Render("Started  ") + m.theme.Value.Render(info.StartedAt.Local().Format("15:04:05")),
		m.theme.Label.Render("Expires  ") + m.theme.Value.Render(info.ExpiresAt.Local().Format("15:04:05")) +
			m.theme.Label.Render(fmt.Sprintf("  (%s left)", components.FormatTimeRemaining(info.TimeRemaining))),
	}
	if m.notice != "" {
		lines = append(lines, "", m.theme.NoticeText.Render(m.notice))
	}
	return lipgloss.Place(m.width, height, lipgloss.Left, lipgloss.Top, m.theme.Body.Render(strings.Join(lines, "\n")))
}
