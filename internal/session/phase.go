// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "time"

// Phase is the derived temporal status of a session.
// Phases are totally ordered by time: NoSession, Active, Warning, Expired.
type Phase int

const (
	// PhaseNoSession means no session exists (never started or logged out).
	PhaseNoSession Phase = iota
	// PhaseActive means the session is valid and outside the warning window.
	PhaseActive
	// PhaseWarning means the session is valid but inside the warning window.
	PhaseWarning
	// PhaseExpired means the session is past its horizon but still retained.
	PhaseExpired
)

// String returns a string representation of the Phase.
func (p Phase) String() string {
	switch p {
	case PhaseNoSession:
		return "NO_SESSION"
	case PhaseActive:
		return "ACTIVE"
	case PhaseWarning:
		return "WARNING"
	case PhaseExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// IsActive returns true if the phase still allows activity.
func (p Phase) IsActive() bool {
	return p == PhaseActive || p == PhaseWarning
}

// derivePhase computes the phase from now and the stored horizon.
// It is the only place a phase is ever produced.
func derivePhase(now, warningAt, expiresAt time.Time, hasSession bool) Phase {
	switch {
	case !hasSession:
		return PhaseNoSession
	case !now.Before(expiresAt):
		return PhaseExpired
	case !now.Before(warningAt):
		return PhaseWarning
	default:
		return PhaseActive
	}
}
