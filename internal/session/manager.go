// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Session policy constants.
const (
	// DefaultSessionDuration is how long a session lives after Start or Extend.
	DefaultSessionDuration = 30 * time.Minute

	// DefaultWarningWindow is the trailing part of the session in which the UI
	// should prompt the user to extend.
	DefaultWarningWindow = 5 * time.Minute

	// DefaultRevokeTimeout bounds a single best-effort revocation call.
	DefaultRevokeTimeout = 10 * time.Second
)

// =============================================================================
// TYPES
// =============================================================================

// User is the opaque identity reference a session belongs to.
// A User with an empty ID is the null user.
type User struct {
	ID   string
	Name string
	Role string
}

// IsZero reports whether u is the null user.
func (u User) IsZero() bool {
	return u.ID == ""
}

// Policy holds the session timing knobs.
type Policy struct {
	// SessionDuration is the full expiry horizon (default: 30 minutes).
	SessionDuration time.Duration

	// WarningWindow is how long before expiry the warning phase begins (default: 5 minutes).
	// Always strictly less than SessionDuration.
	WarningWindow time.Duration
}

// DefaultPolicy returns the default 30m/5m policy.
func DefaultPolicy() Policy {
	return Policy{
		SessionDuration: DefaultSessionDuration,
		WarningWindow:   DefaultWarningWindow,
	}
}

// Normalize returns a policy that satisfies 0 < WarningWindow < SessionDuration.
// The boolean reports whether anything had to be changed.
func (p Policy) Normalize() (Policy, bool) {
	out := p
	if out.SessionDuration <= 0 {
		out.SessionDuration = DefaultSessionDuration
	}
	if out.WarningWindow <= 0 || out.WarningWindow >= out.SessionDuration {
		out.WarningWindow = min(DefaultWarningWindow, out.SessionDuration/2)
	}
	return out, out != p
}

// Info is a point-in-time, side-effect-free view of the session.
type Info struct {
	// IsActive is true iff a session exists and now < ExpiresAt.
	IsActive bool
	// IsWarningActive is true iff a session exists and WarningAt <= now < ExpiresAt.
	IsWarningActive bool
	// TimeRemaining is max(0, ExpiresAt - now); zero without a session.
	TimeRemaining time.Duration
	// Phase is the derived phase at the time of the snapshot.
	Phase Phase

	User      User
	StartedAt time.Time
	ExpiresAt time.Time
	WarningAt time.Time
}

// HasSession reports whether the snapshot saw a session, expired or not.
func (i Info) HasSession() bool {
	return i.Phase != PhaseNoSession
}

// record is the one live session. Phase is never stored here.
type record struct {
	user           User
	refreshTokenID string
	startedAt      time.Time
	expiresAt      time.Time
	warningAt      time.Time
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager tracks one authenticated session and answers which phase it is in.
// Phases are recomputed from the clock on every read; nothing is pushed by timers.
type Manager struct {
	mu      sync.RWMutex
	clock   Clock
	policy  Policy
	current *record

	revoker       Revoker
	revokeTimeout time.Duration
	inflight      sync.WaitGroup

	logger *slog.Logger

	subMu       sync.Mutex
	subscribers map[int]func(Event)
	nextSubID   int
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source (default: SystemClock).
func WithClock(c Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithRevoker sets the auth collaborator notified on Logout.
func WithRevoker(r Revoker) Option {
	return func(m *Manager) {
		m.revoker = r
	}
}

// WithRevokeTimeout bounds each revocation call.
func WithRevokeTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.revokeTimeout = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a Manager with no session.
// An invalid policy is normalized and the adjustment is logged.
func NewManager(policy Policy, opts ...Option) *Manager {
	m := &Manager{
		clock:         SystemClock{},
		revokeTimeout: DefaultRevokeTimeout,
		logger:        slog.Default(),
		subscribers:   make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.policy = m.normalizePolicy(policy)
	return m
}

func (m *Manager) normalizePolicy(p Policy) Policy {
	np, changed := p.Normalize()
	if changed {
		m.logger.Warn("SESSION_POLICY_ADJUSTED",
			"requested_duration", p.SessionDuration,
			"requested_warning", p.WarningWindow,
			"duration", np.SessionDuration,
			"warning", np.WarningWindow)
	}
	return np
}

// Policy returns the policy applied to the next Start or Extend.
func (m *Manager) Policy() Policy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policy
}

// SetPolicy replaces the timing policy. The live session keeps its current
// horizon until the next Start or Extend.
func (m *Manager) SetPolicy(p Policy) {
	np := m.normalizePolicy(p)
	m.mu.Lock()
	m.policy = np
	m.mu.Unlock()
	m.logger.Info("SESSION_POLICY_UPDATED", "duration", np.SessionDuration, "warning", np.WarningWindow)
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Start begins a fresh full-duration session, discarding any prior one.
// Start does not revoke the replaced session's refresh token; EnsureStarted
// does. Start never fails; a null user is ignored.
func (m *Manager) Start(user User, refreshTokenID string) {
	if user.IsZero() {
		m.logger.Warn("SESSION_START_IGNORED", "reason", "null user")
		return
	}

	m.mu.Lock()
	ev := m.startLocked(user, refreshTokenID)
	m.mu.Unlock()

	m.announceStart(ev)
}

// startIfInactive is Start guarded by an active-session check made under the
// same lock. It returns the record it replaced, which nothing references
// once it is detached.
func (m *Manager) startIfInactive(user User, refreshTokenID string) (started bool, prev *record) {
	if user.IsZero() {
		m.logger.Warn("SESSION_START_IGNORED", "reason", "null user")
		return false, nil
	}

	m.mu.Lock()
	prev = m.current
	if prev != nil && derivePhase(m.clock.Now(), prev.warningAt, prev.expiresAt, true).IsActive() {
		m.mu.Unlock()
		return false, nil
	}
	ev := m.startLocked(user, refreshTokenID)
	m.mu.Unlock()

	m.announceStart(ev)
	return true, prev
}

// startLocked installs a fresh record. Caller holds mu.
func (m *Manager) startLocked(user User, refreshTokenID string) Event {
	now := m.clock.Now()
	replaced := m.current != nil
	rec := &record{
		user:           user,
		refreshTokenID: refreshTokenID,
		startedAt:      now,
	}
	m.setHorizonLocked(rec, now)
	m.current = rec
	ev := m.eventLocked(EventStarted, rec, now)
	ev.Replaced = replaced
	return ev
}

func (m *Manager) announceStart(ev Event) {
	m.logger.Info("SESSION_STARTED", "user", ev.User.ID, "role", ev.User.Role,
		"expires_at", ev.ExpiresAt, "replaced", ev.Replaced)
	m.publish(ev)
}

// Extend moves the expiry horizon to now + SessionDuration. It clears an active
// warning and revives an expired-but-retained session. Without a session it is
// a silent no-op.
func (m *Manager) Extend() {
	m.mu.Lock()
	rec := m.current
	if rec == nil {
		m.mu.Unlock()
		m.logger.Debug("SESSION_EXTEND_IGNORED", "reason", "no session")
		return
	}
	now := m.clock.Now()
	prev := derivePhase(now, rec.warningAt, rec.expiresAt, true)
	m.setHorizonLocked(rec, now)
	ev := m.eventLocked(EventExtended, rec, now)
	m.mu.Unlock()

	ev.PreviousPhase = prev
	m.logger.Info("SESSION_EXTENDED", "user", rec.user.ID, "from_phase", prev.String(),
		"expires_at", ev.ExpiresAt)
	m.publish(ev)
}

// Logout clears the session immediately and notifies the revoker in the
// background. The revocation outcome never affects local state. Without a
// session it is a silent no-op.
func (m *Manager) Logout() {
	m.mu.Lock()
	rec := m.current
	if rec == nil {
		m.mu.Unlock()
		m.logger.Debug("SESSION_LOGOUT_IGNORED", "reason", "no session")
		return
	}
	now := m.clock.Now()
	prev := derivePhase(now, rec.warningAt, rec.expiresAt, true)
	m.current = nil
	ev := m.eventLocked(EventLoggedOut, rec, now)
	revoker := m.revoker
	timeout := m.revokeTimeout
	if revoker != nil && rec.refreshTokenID != "" {
		m.inflight.Add(1)
	}
	m.mu.Unlock()

	ev.PreviousPhase = prev
	m.logger.Info("SESSION_LOGOUT", "user", rec.user.ID, "from_phase", prev.String(),
		"duration", now.Sub(rec.startedAt))

	if revoker != nil && rec.refreshTokenID != "" {
		go m.revoke(revoker, rec.user, rec.refreshTokenID, timeout)
	}
	m.publish(ev)
}

// revokeDetached revokes a refresh token that no session holds, in the
// background like Logout. The live session's token is never touched.
func (m *Manager) revokeDetached(user User, tokenID string) {
	if tokenID == "" {
		return
	}
	m.mu.RLock()
	if m.current != nil && m.current.refreshTokenID == tokenID {
		m.mu.RUnlock()
		return
	}
	revoker := m.revoker
	timeout := m.revokeTimeout
	if revoker != nil {
		m.inflight.Add(1)
	}
	m.mu.RUnlock()

	if revoker == nil {
		m.logger.Debug("SESSION_REVOKE_SKIPPED", "user", user.ID, "reason", "no revoker")
		return
	}
	go m.revoke(revoker, user, tokenID, timeout)
}

// revoke runs one best-effort revocation. Errors are logged and dropped.
func (m *Manager) revoke(r Revoker, user User, tokenID string, timeout time.Duration) {
	defer m.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := r.Revoke(ctx, tokenID); err != nil {
		m.logger.Warn("SESSION_REVOKE_FAILED", "user", user.ID, "error", err)
		return
	}
	m.logger.Debug("SESSION_REVOKED", "user", user.ID)
}

// Wait blocks until every revocation dispatched by Logout has returned.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

// setHorizonLocked recomputes expiresAt and warningAt from now. Caller holds mu.
func (m *Manager) setHorizonLocked(rec *record, now time.Time) {
	rec.expiresAt = now.Add(m.policy.SessionDuration)
	rec.warningAt = rec.expiresAt.Add(-m.policy.WarningWindow)
}

// =============================================================================
// READS
// =============================================================================

// Snapshot derives the session state from the clock. It has no side effects.
func (m *Manager) Snapshot() Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.clock.Now()
	rec := m.current
	if rec == nil {
		return Info{Phase: PhaseNoSession}
	}

	phase := derivePhase(now, rec.warningAt, rec.expiresAt, true)
	remaining := rec.expiresAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	return Info{
		IsActive:        phase.IsActive(),
		IsWarningActive: phase == PhaseWarning,
		TimeRemaining:   remaining,
		Phase:           phase,
		User:            rec.user,
		StartedAt:       rec.startedAt,
		ExpiresAt:       rec.expiresAt,
		WarningAt:       rec.warningAt,
	}
}
