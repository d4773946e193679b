// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package shell is the Bubble Tea layout shell of the console.
//
// The shell owns no timers of its own. It re-arms session.TickCmd after every
// TickMsg, takes a snapshot through a session.Poller (so phase-change hooks
// fire) and renders the result: the login prompt without a session, the
// session summary while active, and the timeout overlay in the warning and
// expired phases. Extend and logout go straight to the manager and are
// followed by an immediate snapshot so the overlay clears without waiting
// for the next tick.
package shell
