// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the non-TUI commands of
// chitfund-console.
//
// # Commands
//
//   - tui: full-screen console (default, run from main)
//   - console: line-mode console over the same session manager
//   - status: configured policy plus the live session of a running console
//   - config: show, path or init the TOML config
//   - version, help
//
// Handlers write to an io.Writer and return errors; main prints them and
// sets the exit code. status, config and version honor --json.
package cli
