// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganforge/chitfund-console/internal/session"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	return out
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("rt-secret-1")
	assert.Len(t, a, 12)
	assert.Equal(t, a, Fingerprint("rt-secret-1"))
	assert.NotEqual(t, a, Fingerprint("rt-secret-2"))
	assert.Empty(t, Fingerprint(""))
}

func TestLogger_AttachRecordsTransitions(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	clock := session.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	mgr := session.NewManager(session.DefaultPolicy(), session.WithClock(clock))
	detach := l.Attach(mgr)

	mgr.Start(session.User{ID: "u-1", Role: "admin"}, "rt-secret")
	clock.Advance(26 * time.Minute)
	mgr.Extend()
	mgr.Logout()
	detach()
	mgr.Start(session.User{ID: "u-2"}, "rt-other")

	recs := decodeLines(t, buf.Bytes())
	require.Len(t, recs, 3)
	assert.Equal(t, EventSessionStart, recs[0]["msg"])
	assert.Equal(t, EventSessionExtend, recs[1]["msg"])
	assert.Equal(t, "WARNING", recs[1]["from_phase"])
	assert.Equal(t, EventSessionLogout, recs[2]["msg"])

	user := recs[0]["user"].(map[string]any)
	assert.Equal(t, "u-1", user["id"])
	assert.Equal(t, Fingerprint("rt-secret"), recs[0]["token"])
	assert.NotContains(t, buf.String(), "rt-secret", "raw token handles must never be logged")
}

func TestLogger_RecordPhaseChange(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	info := session.Info{User: session.User{ID: "u-1"}, TimeRemaining: 5 * time.Minute}
	l.RecordPhaseChange(session.PhaseActive, session.PhaseWarning, info)
	l.RecordPhaseChange(session.PhaseWarning, session.PhaseExpired, info)
	l.RecordPhaseChange(session.PhaseExpired, session.PhaseActive, info)

	recs := decodeLines(t, buf.Bytes())
	require.Len(t, recs, 3)
	assert.Equal(t, EventSessionWarning, recs[0]["msg"])
	assert.Equal(t, EventSessionExpired, recs[1]["msg"])
	assert.Equal(t, EventPhaseTransition, recs[2]["msg"])
	assert.Equal(t, "ACTIVE", recs[2]["to"])
}

func TestLogger_WrapRevoker(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	boom := errors.New("server said no")
	ok := l.WrapRevoker(session.RevokerFunc(func(context.Context, string) error { return nil }))
	bad := l.WrapRevoker(session.RevokerFunc(func(context.Context, string) error { return boom }))

	require.NoError(t, ok.Revoke(context.Background(), "rt-1"))
	assert.ErrorIs(t, bad.Revoke(context.Background(), "rt-2"), boom)

	recs := decodeLines(t, buf.Bytes())
	require.Len(t, recs, 2)
	assert.Equal(t, EventSessionRevoked, recs[0]["msg"])
	assert.Equal(t, EventRevokeFailed, recs[1]["msg"])
	assert.Equal(t, "server said no", recs[1]["error"])
}

func TestOpen_AppendsWithSecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")

	l, err := Open(path)
	require.NoError(t, err)
	l.RecordPhaseChange(session.PhaseActive, session.PhaseWarning, session.Info{})
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "second close is a no-op")

	l, err = Open(path)
	require.NoError(t, err)
	l.RecordPhaseChange(session.PhaseWarning, session.PhaseExpired, session.Info{})
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))

	if os.PathSeparator == '/' {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}
