// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the console TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Teal - Brand color, headers, prompts
  - Indigo - Borders and role labels
  - Emerald - Active session
  - Amber - Session warning
  - Rose - Expired session and errors

Text colors follow a hierarchy: TextPrimary, TextSecondary, TextMuted and
TextInverse for text on colored badges.

# Theme System (theme.go)

NewTheme takes the configured mode. "auto" asks termenv whether the terminal
background is dark; "dark" and "light" force the choice:

	theme := styles.NewTheme(cfg.UI.Theme)
	badge := theme.BadgeWarning.Render("WARNING")

# Status Indicators

Color is never the only cue. Every status also carries an ASCII indicator:

	StatusIndicators.Success   - [OK]
	StatusIndicators.Error     - [X]
	StatusIndicators.Warning   - [!]
*/
package styles
