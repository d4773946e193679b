// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for the
// chit-fund console.
//
// Configuration is TOML, with built-in defaults and environment variable
// overrides applied on top of the file.
//
// # File Location
//
//   - --config PATH when given
//   - ~/.chitfund/config.toml otherwise
//   - Built-in defaults when no file exists
//
// # Example
//
//	[session]
//	duration = "30m"
//	warning_window = "5m"
//	poll_interval = "1m"
//
//	[auth]
//	revoke_url = "https://api.example.org/auth/revoke"
//
// # Hot Reload
//
// Watch reloads the file when it changes so the session policy can be pushed
// into a running manager; the live session keeps its horizon until the next
// start or extend.
package config
