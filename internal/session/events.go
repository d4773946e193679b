// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "time"

// EventType identifies an explicit transition. Warning and expiry are not
// events: they are observed through Snapshot.
type EventType int

const (
	// EventStarted is emitted by Start.
	EventStarted EventType = iota
	// EventExtended is emitted by Extend when a session exists.
	EventExtended
	// EventLoggedOut is emitted by Logout when a session existed.
	EventLoggedOut
)

// String returns a string representation of the EventType.
func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventExtended:
		return "extended"
	case EventLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Event describes a completed transition.
type Event struct {
	Type           EventType
	User           User
	RefreshTokenID string
	At             time.Time

	// ExpiresAt is the new horizon; zero for EventLoggedOut.
	ExpiresAt time.Time

	// PreviousPhase is the phase observed just before Extend or Logout.
	PreviousPhase Phase

	// Replaced is set on EventStarted when an existing session was discarded.
	Replaced bool
}

// Subscribe registers fn for every explicit transition and returns a function
// that removes it. fn runs synchronously on the goroutine that made the
// transition, after the manager's lock is released.
func (m *Manager) Subscribe(fn func(Event)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subscribers, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) publish(ev Event) {
	m.subMu.Lock()
	fns := make([]func(Event), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// eventLocked builds an Event from rec. Caller holds mu.
func (m *Manager) eventLocked(t EventType, rec *record, now time.Time) Event {
	ev := Event{
		Type:           t,
		User:           rec.user,
		RefreshTokenID: rec.refreshTokenID,
		At:             now,
	}
	if t != EventLoggedOut {
		ev.ExpiresAt = rec.expiresAt
	}
	return ev
}
