// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestTickCmd(t *testing.T) {
	cmd := TickCmd(time.Millisecond)
	require.NotNil(t, cmd)

	msg := cmd()
	tick, ok := msg.(TickMsg)
	require.True(t, ok, "expected TickMsg, got %T", msg)
	assert.False(t, tick.Time.IsZero())
}

func TestNewPoller_DefaultInterval(t *testing.T) {
	m, _ := newTestManager(t)
	p := NewPoller(m, 0, nil)
	assert.Equal(t, DefaultPollInterval, p.Interval())
}

func TestPoller_PhaseChanges(t *testing.T) {
	m, clock := newTestManager(t)

	type change struct{ from, to Phase }
	var changes []change
	var snapshots int

	p := NewPoller(m, time.Minute, func(Info) { snapshots++ })
	p.OnPhaseChange(func(from, to Phase, _ Info) {
		changes = append(changes, change{from, to})
	})

	p.Poll()
	m.Start(alice, "rt-1")
	p.Poll()
	clock.Advance(25 * time.Minute)
	p.Poll()
	p.Poll()
	clock.Advance(5 * time.Minute)
	p.Poll()
	m.Extend()
	p.Poll()
	m.Logout()
	p.Poll()

	assert.Equal(t, 7, snapshots)
	assert.Equal(t, []change{
		{PhaseNoSession, PhaseActive},
		{PhaseActive, PhaseWarning},
		{PhaseWarning, PhaseExpired},
		{PhaseExpired, PhaseActive},
		{PhaseActive, PhaseNoSession},
	}, changes)
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, _ := newTestManager(t)
	m.Start(alice, "rt-1")

	var mu sync.Mutex
	polls := 0
	first := make(chan struct{})
	p := NewPoller(m, 5*time.Millisecond, func(info Info) {
		mu.Lock()
		polls++
		if polls == 1 {
			close(first)
		}
		mu.Unlock()
		assert.True(t, info.IsActive)
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not take an immediate snapshot")
	}
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPoller_RunWithDoneContext(t *testing.T) {
	m, _ := newTestManager(t)
	called := false
	p := NewPoller(m, time.Minute, func(Info) { called = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Run(ctx), context.Canceled)
	assert.False(t, called)
}

// =============================================================================
// INITIALIZATION GUARD TESTS
// =============================================================================

// revocations collects revoked token IDs from the manager's goroutines.
type revocations struct {
	mu  sync.Mutex
	ids []string
}

func (r *revocations) revoker() Revoker {
	return RevokerFunc(func(_ context.Context, id string) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.ids = append(r.ids, id)
		return nil
	})
}

func (r *revocations) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

func TestEnsureStarted(t *testing.T) {
	var rev revocations
	m, clock := newTestManager(t, WithRevoker(rev.revoker()))

	assert.True(t, EnsureStarted(m, alice, "rt-1"))
	clock.Advance(10 * time.Minute)

	// A second surface initializing must not reset the horizon.
	assert.False(t, EnsureStarted(m, alice, "rt-2"))
	assert.Equal(t, 20*time.Minute, m.Snapshot().TimeRemaining)
	m.Wait()
	assert.Equal(t, []string{"rt-2"}, rev.list(), "unused token is revoked")

	// Once expired, the guard starts a fresh session and revokes the old token.
	clock.Advance(20 * time.Minute)
	assert.True(t, EnsureStarted(m, alice, "rt-3"))
	assert.Equal(t, DefaultSessionDuration, m.Snapshot().TimeRemaining)
	m.Wait()
	assert.Equal(t, []string{"rt-2", "rt-1"}, rev.list())

	m.Logout()
	m.Wait()
	assert.Equal(t, []string{"rt-2", "rt-1", "rt-3"}, rev.list())

	assert.False(t, EnsureStarted(m, User{}, "rt-4"))
	assert.Equal(t, PhaseNoSession, m.Snapshot().Phase)
	m.Wait()
	assert.Contains(t, rev.list(), "rt-4")
}

func TestEnsureStarted_ConcurrentSurfaces(t *testing.T) {
	defer goleak.VerifyNone(t)

	var rev revocations
	m, _ := newTestManager(t, WithRevoker(rev.revoker()))

	const surfaces = 20
	var started atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < surfaces; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if EnsureStarted(m, alice, fmt.Sprintf("rt-%d", i)) {
				started.Add(1)
			}
		}(i)
	}
	wg.Wait()
	m.Wait()

	assert.Equal(t, int32(1), started.Load(), "exactly one surface starts the session")
	assert.Len(t, rev.list(), surfaces-1, "every other token is revoked")
	assert.Equal(t, DefaultSessionDuration, m.Snapshot().TimeRemaining)
}
