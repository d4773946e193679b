// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit records session lifecycle events as JSON lines.
//
// Refresh-token handles never reach the log; they are replaced by a short
// BLAKE2b fingerprint so entries for one token can still be correlated.
package audit

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/morganforge/chitfund-console/internal/session"
)

// Event names written to the audit log.
const (
	EventSessionStart    = "SESSION_START"
	EventSessionExtend   = "SESSION_EXTEND"
	EventSessionLogout   = "SESSION_LOGOUT"
	EventSessionWarning  = "SESSION_WARNING"
	EventSessionExpired  = "SESSION_EXPIRED"
	EventSessionRevoked  = "SESSION_REVOKED"
	EventRevokeFailed    = "SESSION_REVOKE_FAILED"
	EventPhaseTransition = "SESSION_PHASE"
)

// Logger writes audit records. The zero value is not usable; use New or Open.
type Logger struct {
	mu     sync.Mutex
	log    *slog.Logger
	closer io.Closer
}

// New creates a Logger writing JSON lines to w.
func New(w io.Writer) *Logger {
	return &Logger{log: slog.New(slog.NewJSONHandler(w, nil))}
}

// Open appends to the audit file at path, creating it with 0600 permissions.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	l := New(f)
	l.closer = f
	return l, nil
}

// Close closes the underlying file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	return err
}

func (l *Logger) write(event string, attrs ...slog.Attr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log.LogAttrs(context.Background(), slog.LevelInfo, event, attrs...)
}

// Fingerprint returns a short, stable, non-reversible tag for a token handle.
func Fingerprint(refreshTokenID string) string {
	if refreshTokenID == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(refreshTokenID))
	return hex.EncodeToString(sum[:])[:12]
}

func userAttr(u session.User) slog.Attr {
	return slog.Group("user", slog.String("id", u.ID), slog.String("role", u.Role))
}

// =============================================================================
// SESSION HOOKS
// =============================================================================

// RecordEvent writes one manager transition.
func (l *Logger) RecordEvent(ev session.Event) {
	attrs := []slog.Attr{
		userAttr(ev.User),
		slog.String("token", Fingerprint(ev.RefreshTokenID)),
		slog.Time("at", ev.At),
	}

	var name string
	switch ev.Type {
	case session.EventStarted:
		name = EventSessionStart
		attrs = append(attrs, slog.Time("expires_at", ev.ExpiresAt), slog.Bool("replaced", ev.Replaced))
	case session.EventExtended:
		name = EventSessionExtend
		attrs = append(attrs, slog.Time("expires_at", ev.ExpiresAt), slog.String("from_phase", ev.PreviousPhase.String()))
	case session.EventLoggedOut:
		name = EventSessionLogout
		attrs = append(attrs, slog.String("from_phase", ev.PreviousPhase.String()))
	default:
		return
	}
	l.write(name, attrs...)
}

// RecordPhaseChange writes a phase change observed by a poller. Entering
// Warning or Expired gets its own event name.
func (l *Logger) RecordPhaseChange(from, to session.Phase, info session.Info) {
	name := EventPhaseTransition
	switch to {
	case session.PhaseWarning:
		name = EventSessionWarning
	case session.PhaseExpired:
		name = EventSessionExpired
	}
	l.write(name,
		userAttr(info.User),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Duration("remaining", info.TimeRemaining))
}

// Attach subscribes the logger to mgr and returns the unsubscribe function.
func (l *Logger) Attach(mgr *session.Manager) func() {
	return mgr.Subscribe(l.RecordEvent)
}

// WrapRevoker returns a Revoker that records the outcome of every call to r.
func (l *Logger) WrapRevoker(r session.Revoker) session.Revoker {
	return session.RevokerFunc(func(ctx context.Context, refreshTokenID string) error {
		err := r.Revoke(ctx, refreshTokenID)
		if err != nil {
			l.write(EventRevokeFailed,
				slog.String("token", Fingerprint(refreshTokenID)),
				slog.String("error", err.Error()))
			return err
		}
		l.write(EventSessionRevoked, slog.String("token", Fingerprint(refreshTokenID)))
		return nil
	})
}
