// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultPollInterval balances timer drift against CPU and battery cost.
const DefaultPollInterval = 60 * time.Second

// Snapshotter is anything that can report session state.
type Snapshotter interface {
	Snapshot() Info
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg is sent when it is time to take another snapshot.
type TickMsg struct {
	Time time.Time
}

// TickCmd returns a command that fires one TickMsg after interval.
// Ticks are single-shot: a model that stops re-issuing TickCmd stops polling.
func TickCmd(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// =============================================================================
// CONTEXT-SCOPED POLLER
// =============================================================================

// Poller snapshots a session on a fixed interval for callers outside Bubble Tea.
// The ticker lives only for the duration of Run.
type Poller struct {
	src      Snapshotter
	interval time.Duration

	mu            sync.Mutex
	onSnapshot    func(Info)
	onPhaseChange func(from, to Phase, info Info)
	lastPhase     Phase
	seen          bool
}

// NewPoller creates a Poller. onSnapshot may be nil.
func NewPoller(src Snapshotter, interval time.Duration, onSnapshot func(Info)) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		src:        src,
		interval:   interval,
		onSnapshot: onSnapshot,
	}
}

// OnPhaseChange sets a hook called when a poll observes a different phase
// than the previous poll. The first poll never counts as a change.
func (p *Poller) OnPhaseChange(fn func(from, to Phase, info Info)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onPhaseChange = fn
}

// Interval returns the polling interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Poll takes one snapshot and runs the hooks.
func (p *Poller) Poll() Info {
	info := p.src.Snapshot()

	p.mu.Lock()
	from, changed := p.lastPhase, p.seen && p.lastPhase != info.Phase
	p.lastPhase = info.Phase
	p.seen = true
	onSnapshot := p.onSnapshot
	onChange := p.onPhaseChange
	p.mu.Unlock()

	if onSnapshot != nil {
		onSnapshot(info)
	}
	if changed && onChange != nil {
		onChange(from, info.Phase, info)
	}
	return info
}

// Run polls immediately and then once per interval until ctx is done.
// It always returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Poll()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Poll()
		}
	}
}

// =============================================================================
// INITIALIZATION GUARD
// =============================================================================

// EnsureStarted starts a session only if none is currently active, so that
// several surfaces initializing on their own poll cycles do not keep
// resetting the horizon. The check and the start happen under one lock.
// It reports whether a session was started.
//
// Tokens left without a session are revoked in the background: the token of
// an expired session being replaced, and refreshTokenID itself when nothing
// was started. Manager.Wait covers those revocations.
func EnsureStarted(m *Manager, user User, refreshTokenID string) bool {
	started, prev := m.startIfInactive(user, refreshTokenID)
	if !started {
		m.revokeDetached(user, refreshTokenID)
		return false
	}
	if prev != nil && prev.refreshTokenID != refreshTokenID {
		m.revokeDetached(prev.user, prev.refreshTokenID)
	}
	return true
}
