// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/charmbracelet/lipgloss"

	"github.com/morganforge/chitfund-console/internal/session"
	"github.com/morganforge/chitfund-console/internal/ui/styles"
)

var titleCaser = cases.Title(language.English)

// FormatTimeRemaining formats a duration as M:SS. Negative durations render
// as 0:00; partial seconds are dropped.
func FormatTimeRemaining(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	totalSecs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", totalSecs/60, totalSecs%60)
}

// DisplayName returns the user's name for display, falling back to the ID.
func DisplayName(u session.User) string {
	name := strings.TrimSpace(u.Name)
	if name == "" {
		return u.ID
	}
	return titleCaser.String(name)
}

// PhaseIndicator returns the ASCII indicator that accompanies a phase color.
func PhaseIndicator(p session.Phase) string {
	switch p {
	case session.PhaseActive:
		return styles.StatusIndicators.Active
	case session.PhaseWarning:
		return styles.StatusIndicators.Warning
	case session.PhaseExpired:
		return styles.StatusIndicators.Error
	default:
		return styles.StatusIndicators.Pending
	}
}

// PhaseBadge renders the phase name with its theme badge.
func PhaseBadge(theme *styles.Theme, p session.Phase) string {
	var style lipgloss.Style
	switch p {
	case session.PhaseActive:
		style = theme.BadgeActive
	case session.PhaseWarning:
		style = theme.BadgeWarning
	case session.PhaseExpired:
		style = theme.BadgeExpired
	default:
		style = theme.BadgeNone
	}
	return style.Render(PhaseIndicator(p) + " " + p.String())
}
