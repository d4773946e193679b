// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the session lifecycle manager.
//
// The Manager holds one authenticated session and answers which phase it is
// in. Phases are never pushed by background timers (which get throttled or
// delayed); every Snapshot recomputes them from the injected Clock.
//
// # Key Types
//
//   - Manager: Start, Extend, Logout and Snapshot
//   - Phase: NoSession, Active, Warning, Expired
//   - Info: the snapshot returned to pollers
//   - Revoker: auth collaborator notified on Logout
//   - Poller / TickCmd: caller-owned polling for plain Go and Bubble Tea
//
// # State Machine
//
//	NoSession --Start--> Active
//	Active    --time--> Warning --time--> Expired
//	Warning   --Extend--> Active
//	Expired   --Extend--> Active
//	Active|Warning|Expired --Logout--> NoSession
//
// # Usage
//
//	mgr := session.NewManager(session.DefaultPolicy(), session.WithRevoker(registry))
//	mgr.Start(user, refreshTokenID)
//
//	info := mgr.Snapshot()
//	if info.IsWarningActive {
//	    // show the warning dialog
//	}
//
//	mgr.Extend()
//	mgr.Logout()
//	mgr.Wait() // on shutdown, let pending revocations finish
package session
