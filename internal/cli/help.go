// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// help.go - Markdown help rendered with glamour.

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// HELP TEXT
// =============================================================================

const helpMarkdown = `# chitfund-console

Session console for the chit-fund admin client. A session lasts
**%s** from sign-in or the last extension; the warning dialog opens
**%s** before it expires.

## Commands

| Command | Description |
|---|---|
| ` + "`tui`" + ` | Full-screen console (default) |
| ` + "`console`" + ` | Line-mode console for scripts and plain terminals |
| ` + "`status [--json]`" + ` | Session policy and the live session of a running console |
| ` + "`config show`" + ` | Print the effective configuration |
| ` + "`config path`" + ` | Print the config file path |
| ` + "`config init`" + ` | Write a default config file |
| ` + "`version`" + ` | Version information |

## Global flags

- ` + "`--config PATH`" + ` use another config file
- ` + "`--json`" + ` machine-readable output
- ` + "`--verbose`" + ` debug logging on stderr

## Keys in the TUI

- ` + "`ctrl+e`" + ` extend the session
- ` + "`ctrl+l`" + ` sign out
- ` + "`?`" + ` toggle help, ` + "`q`" + ` quit
`

const consoleHelpMarkdown = `## Console commands

| Command | Description |
|---|---|
| ` + "`login <user> [role]`" + ` | Sign in as admin, agent or member (default member) |
| ` + "`extend`" + ` | Reset the session to its full length |
| ` + "`logout`" + ` | Sign out and revoke the refresh token |
| ` + "`status`" + ` | Show the current session |
| ` + "`wait <duration>`" + ` | Sleep, e.g. ` + "`wait 90s`" + ` |
| ` + "`help`" + ` | This text |
| ` + "`quit`" + ` | Sign out and exit |
`

// HelpMarkdown returns the top-level help as markdown, with the configured
// durations filled in.
func HelpMarkdown(sessionDuration, warningWindow fmt.Stringer) string {
	return fmt.Sprintf(helpMarkdown, sessionDuration, warningWindow)
}

// RenderMarkdown renders markdown for a terminal of the given width. When
// styled is false, or rendering fails, the markdown is returned as-is so
// piped output stays clean.
func RenderMarkdown(md string, width int, styled bool) string {
	if !styled {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n") + "\n"
}

// HandleHelp handles the "help" command.
func HandleHelp(w io.Writer, sessionDuration, warningWindow fmt.Stringer) error {
	_, err := io.WriteString(w, RenderMarkdown(HelpMarkdown(sessionDuration, warningWindow), GetTerminalWidth(), IsStdoutTTY()))
	return err
}
