// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package shell

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/chitfund-console/internal/audit"
	"github.com/morganforge/chitfund-console/internal/session"
	"github.com/morganforge/chitfund-console/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case session.TickMsg:
		// Not re-arming the tick is how polling stops
		if m.quitting {
			return m, nil
		}
		m.refresh()
		return m, session.TickCmd(m.interval)

	case loginResultMsg:
		return m.handleLoginResult(msg)

	case components.ExtendRequestMsg:
		return m.extend()

	case components.SignInRequestMsg:
		return m.logout()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Force) {
		return m.quit()
	}

	// Warning dialog or expired notice
	if m.overlay.IsVisible() {
		switch {
		case key.Matches(msg, m.keys.Extend):
			return m.extend()
		case key.Matches(msg, m.keys.Logout):
			return m.logout()
		}
		var cmd tea.Cmd
		m.overlay, cmd = m.overlay.Update(msg)
		return m, cmd
	}

	// Login prompt
	if !m.info.HasSession() {
		if key.Matches(msg, m.keys.Submit) {
			return m.submitLogin()
		}
		if msg.Type == tea.KeyEsc {
			return m.quit()
		}
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Extend):
		return m.extend()
	case key.Matches(msg, m.keys.Logout):
		return m.logout()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	}
	return m, nil
}

// =============================================================================
// ACTIONS
// =============================================================================

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	if m.signingIn {
		return m, nil
	}
	id, err := parseLogin(m.login.Value())
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.notice = ""
	m.signingIn = true
	return m, m.issueCmd(id)
}

func (m Model) handleLoginResult(msg loginResultMsg) (tea.Model, tea.Cmd) {
	m.signingIn = false
	if msg.err != nil {
		m.err = msg.err
		m.logger.Warn("SIGN_IN_FAILED", "user", msg.identity.ID, "error", msg.err)
		return m, textinput.Blink
	}

	if !session.EnsureStarted(m.mgr, msg.identity.SessionUser(), msg.token) {
		// Another surface signed in first; keep its horizon. The unused token
		// has been handed to the revoker.
		m.logger.Info("SIGN_IN_SKIPPED", "user", msg.identity.ID, "token", audit.Fingerprint(msg.token))
		m.notice = "A session is already active"
	} else {
		m.notice = ""
	}
	m.err = nil
	m.login.Reset()
	m.login.Blur()
	m.refresh()
	return m, nil
}

func (m Model) extend() (tea.Model, tea.Cmd) {
	m.mgr.Extend()
	m.refresh()
	if m.info.HasSession() {
		m.notice = "Session extended"
	}
	return m, nil
}

func (m Model) logout() (tea.Model, tea.Cmd) {
	m.mgr.Logout()
	m.refresh()
	m.notice = "Signed out"
	m.login.Focus()
	return m, textinput.Blink
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	return m, tea.Quit
}
