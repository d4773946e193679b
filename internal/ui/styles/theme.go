// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	Mode         string
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER / STATUS BAR
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	StatusBar   lipgloss.Style
	Label       lipgloss.Style
	Value       lipgloss.Style
	Role        lipgloss.Style

	// ==========================================================================
	// PHASE BADGES
	// ==========================================================================

	BadgeNone    lipgloss.Style
	BadgeActive  lipgloss.Style
	BadgeWarning lipgloss.Style
	BadgeExpired lipgloss.Style

	// ==========================================================================
	// LOGIN / BODY
	// ==========================================================================

	LoginBox   lipgloss.Style
	Prompt     lipgloss.Style
	Body       lipgloss.Style
	Hint       lipgloss.Style
	ErrorText  lipgloss.Style
	NoticeText lipgloss.Style
}

// NewTheme creates a theme for mode ("auto", "dark" or "light"). Unknown
// modes behave like "auto".
func NewTheme(mode string) *Theme {
	colorProfile := termenv.ColorProfile()

	mode = strings.ToLower(strings.TrimSpace(mode))
	var isDark bool
	switch mode {
	case ModeDark:
		isDark = true
	case ModeLight:
		isDark = false
	default:
		mode = ModeAuto
		isDark = termenv.HasDarkBackground()
	}
	// AdaptiveColor resolves against the global renderer
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		Mode:         mode,
		IsDark:       isDark,
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal).
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	t.Label = lipgloss.NewStyle().Foreground(TextMuted)
	t.Value = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Role = lipgloss.NewStyle().Foreground(Indigo).Italic(true)

	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	t.BadgeNone = badge.Foreground(TextMuted)
	t.BadgeActive = badge.Foreground(TextInverse).Background(Emerald)
	t.BadgeWarning = badge.Foreground(TextInverse).Background(Amber)
	t.BadgeExpired = badge.Foreground(TextInverse).Background(Rose)

	t.LoginBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Indigo).
		Padding(1, 3)

	t.Prompt = lipgloss.NewStyle().Foreground(Teal).Bold(true)
	t.Body = lipgloss.NewStyle().Foreground(TextPrimary).Padding(1, 2)
	t.Hint = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.ErrorText = lipgloss.NewStyle().Foreground(ErrorHighContrast).Bold(true)
	t.NoticeText = lipgloss.NewStyle().Foreground(TextSecondary)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
