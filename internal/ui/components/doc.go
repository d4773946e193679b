// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the session UI components of the console TUI.

Components are built on Bubble Tea and Lip Gloss and render whatever
session.Info snapshot they were last given. None of them keeps a timer.

# Components

Header (header.go) - Title bar with the signed-in user and role.

StatusBar (statusbar.go) - Bottom bar with the phase badge, user, M:SS
countdown and a bar scaled to the session length. Narrow, medium and wide
layouts.

SessionTimeoutOverlay (session_timeout_overlay.go) - Warning dialog while
the session is in its warning window; any key emits ExtendRequestMsg. Once
expired it shows the expired notice and enter emits SignInRequestMsg.

# Helpers

FormatTimeRemaining renders durations as M:SS. DisplayName title-cases user
names with golang.org/x/text/cases.
*/
package components
