// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/chitfund-console/internal/session"
	"github.com/morganforge/chitfund-console/internal/ui/styles"
	"github.com/morganforge/chitfund-console/internal/util"
)

// =============================================================================
// HEADER COMPONENT - title bar with the signed-in user
// =============================================================================

// DefaultTitle is the header title.
const DefaultTitle = "Chit Fund Console"

// Header is the one-line title bar.
type Header struct {
	Title string
	User  session.User
	Width int
	theme *styles.Theme
}

// NewHeader creates a Header with default values.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: DefaultTitle,
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetUser sets the signed-in user; the zero User clears it.
func (h *Header) SetUser(u session.User) {
	h.User = u
}

// View renders the header.
func (h *Header) View() string {
	inner := h.Width - 2
	if inner < 1 {
		inner = 1
	}

	title := h.theme.HeaderTitle.Render(util.TruncateWidth(h.Title, inner))
	if h.User.IsZero() {
		return h.theme.Header.Width(h.Width).Render(title)
	}

	who := DisplayName(h.User)
	if h.User.Role != "" {
		who += " / " + h.User.Role
	}
	room := inner - lipgloss.Width(title) - 2
	if room < 4 {
		return h.theme.Header.Width(h.Width).Render(title)
	}
	who = util.TruncateWidth(who, room)
	// Right-align the user inside the remaining space
	pad := util.PadRight("", room-util.StringWidth(who))
	return h.theme.Header.Width(h.Width).Render(title + "  " + pad + h.theme.NoticeText.Render(who))
}
