// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganforge/chitfund-console/internal/auth"
	"github.com/morganforge/chitfund-console/internal/session"
	"github.com/morganforge/chitfund-console/internal/ui/components"
	"github.com/morganforge/chitfund-console/internal/ui/styles"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeIssuer struct {
	mu     sync.Mutex
	err    error
	issued []auth.Identity
}

func (f *fakeIssuer) Issue(_ context.Context, id auth.Identity) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.issued = append(f.issued, id)
	return fmt.Sprintf("rt-%d", len(f.issued)), nil
}

type revocations struct {
	mu  sync.Mutex
	ids []string
}

func (r *revocations) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return nil
}

type harness struct {
	clock   *session.ManualClock
	mgr     *session.Manager
	issuer  *fakeIssuer
	revoked *revocations
	phases  []string
}

func newHarness(t *testing.T) (*harness, Model) {
	t.Helper()
	h := &harness{
		clock:   session.NewManualClock(epoch),
		issuer:  &fakeIssuer{},
		revoked: &revocations{},
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.mgr = session.NewManager(session.DefaultPolicy(),
		session.WithClock(h.clock),
		session.WithRevoker(h.revoked),
		session.WithLogger(quiet))
	m := New(Options{
		Manager:      h.mgr,
		Issuer:       h.issuer,
		PollInterval: time.Minute,
		Theme:        styles.NewTheme("dark"),
		Logger:       quiet,
		OnPhaseChange: func(from, to session.Phase, _ session.Info) {
			h.phases = append(h.phases, from.String()+"->"+to.String())
		},
	})
	return h, m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func signIn(t *testing.T, m Model, input string) Model {
	t.Helper()
	m.login.SetValue(input)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// LOGIN TESTS
// =============================================================================

func TestParseLogin(t *testing.T) {
	id, err := parseLogin("  Priya  agent ")
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{ID: "priya", Name: "Priya", Role: auth.RoleAgent}, id)

	id, err = parseLogin("ravi")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleMember, id.Role)

	_, err = parseLogin("   ")
	assert.ErrorIs(t, err, auth.ErrEmptyIdentity)
	_, err = parseLogin("ravi auditor")
	assert.ErrorIs(t, err, auth.ErrUnknownRole)
	_, err = parseLogin("a b c")
	assert.Error(t, err)
}

func TestShell_SignInStartsSession(t *testing.T) {
	h, m := newHarness(t)
	assert.Contains(t, m.View(), "Sign in")

	m = signIn(t, m, "priya admin")

	info := h.mgr.Snapshot()
	require.True(t, info.IsActive)
	assert.Equal(t, session.User{ID: "priya", Name: "priya", Role: "admin"}, info.User)
	assert.Equal(t, info, m.Snapshot())
	assert.Equal(t, epoch.Add(30*time.Minute), info.ExpiresAt)

	view := m.View()
	assert.Contains(t, view, "Signed in as")
	assert.Contains(t, view, "Priya")
	assert.Equal(t, []string{"NO_SESSION->ACTIVE"}, h.phases)
}

func TestShell_SignInErrors(t *testing.T) {
	h, m := newHarness(t)

	m.login.SetValue("priya auditor")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.ErrorIs(t, m.err, auth.ErrUnknownRole)
	assert.Contains(t, m.View(), "Error:")

	h.issuer.err = errors.New("registry offline")
	m = signIn(t, m, "priya")
	assert.EqualError(t, m.err, "registry offline")
	assert.False(t, h.mgr.Snapshot().IsActive)

	m.issuer = nil
	h.issuer.err = nil
	m = signIn(t, m, "priya")
	assert.ErrorIs(t, m.err, ErrSignInUnavailable)
}

func TestShell_SignInDoesNotResetActiveSession(t *testing.T) {
	h, m := newHarness(t)

	m.login.SetValue("priya")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()

	// Another surface signs in while the token is being issued
	h.mgr.Start(session.User{ID: "ravi"}, "rt-other")
	h.clock.Advance(10 * time.Minute)

	m, _ = update(t, m, msg)
	info := h.mgr.Snapshot()
	assert.Equal(t, "ravi", info.User.ID)
	assert.Equal(t, 20*time.Minute, info.TimeRemaining, "horizon untouched")
	assert.Contains(t, m.View(), "A session is already active")

	// The token issued for the skipped sign-in is revoked; ravi's is not
	h.mgr.Wait()
	assert.Equal(t, []string{"rt-1"}, h.revoked.ids)
}

// =============================================================================
// POLLING AND OVERLAY TESTS
// =============================================================================

func TestShell_TickRearmsAndShowsWarning(t *testing.T) {
	h, m := newHarness(t)
	m = signIn(t, m, "priya agent")

	h.clock.Advance(26 * time.Minute)
	m, cmd := update(t, m, session.TickMsg{Time: h.clock.Now()})
	assert.NotNil(t, cmd, "tick chain continues")

	require.True(t, m.overlay.IsVisible())
	view := m.View()
	assert.Contains(t, view, "Session Expiring")
	assert.Contains(t, view, "4:00")

	// Any key in the dialog asks for an extension
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeySpace})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.False(t, m.overlay.IsVisible())
	assert.Equal(t, 30*time.Minute, h.mgr.Snapshot().TimeRemaining)
	assert.Contains(t, m.View(), "Session extended")
	assert.Equal(t, []string{"NO_SESSION->ACTIVE", "ACTIVE->WARNING", "WARNING->ACTIVE"}, h.phases)
}

func TestShell_ExpiredThenSignInAgain(t *testing.T) {
	h, m := newHarness(t)
	m = signIn(t, m, "priya")

	h.clock.Advance(31 * time.Minute)
	m, _ = update(t, m, session.TickMsg{})
	require.True(t, m.overlay.IsExpired())
	assert.Contains(t, m.View(), "Session Expired")

	// Expired sessions are retained until the user leaves the notice
	assert.True(t, h.mgr.Snapshot().HasSession())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	h.mgr.Wait()

	assert.False(t, h.mgr.Snapshot().HasSession())
	assert.Equal(t, []string{"rt-1"}, h.revoked.ids)
	assert.Contains(t, m.View(), "Sign in")
	assert.Contains(t, m.View(), "Signed out")
}

func TestShell_ExtendRevivesExpiredSession(t *testing.T) {
	h, m := newHarness(t)
	m = signIn(t, m, "priya")

	h.clock.Advance(40 * time.Minute)
	m, _ = update(t, m, session.TickMsg{})
	require.True(t, m.overlay.IsExpired())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlE})
	assert.Equal(t, session.PhaseActive, m.Snapshot().Phase)
	assert.False(t, m.overlay.IsVisible())
}

// =============================================================================
// KEY BINDING TESTS
// =============================================================================

func TestShell_LogoutKey(t *testing.T) {
	h, m := newHarness(t)
	m = signIn(t, m, "priya")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	h.mgr.Wait()
	assert.False(t, m.Snapshot().HasSession())
	assert.Equal(t, []string{"rt-1"}, h.revoked.ids)
	assert.True(t, m.login.Focused())
}

func TestShell_HelpToggle(t *testing.T) {
	_, m := newHarness(t)
	m = signIn(t, m, "priya")

	assert.False(t, m.help.ShowAll)
	m, _ = update(t, m, runes("?"))
	assert.True(t, m.help.ShowAll)
}

func TestShell_QuitStopsPolling(t *testing.T) {
	_, m := newHarness(t)
	m = signIn(t, m, "priya")

	m, cmd := update(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.Quitting())
	assert.Empty(t, m.View())

	_, cmd = update(t, m, session.TickMsg{})
	assert.Nil(t, cmd, "no tick after quit")
}

func TestShell_QAtLoginPromptIsText(t *testing.T) {
	_, m := newHarness(t)
	m, _ = update(t, m, runes("q"))
	assert.False(t, m.Quitting())
	assert.Equal(t, "q", m.login.Value())
}

func TestShell_WindowSize(t *testing.T) {
	_, m := newHarness(t)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.status.Width)
	assert.Equal(t, 120, m.header.Width)
}

func TestShell_OverlayMessagesRouteToManager(t *testing.T) {
	h, m := newHarness(t)
	m = signIn(t, m, "priya")
	h.clock.Advance(5 * time.Minute)

	m, _ = update(t, m, components.ExtendRequestMsg{})
	assert.Equal(t, 30*time.Minute, m.Snapshot().TimeRemaining)

	m, _ = update(t, m, components.SignInRequestMsg{})
	assert.False(t, m.Snapshot().HasSession())
}
