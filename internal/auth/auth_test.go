// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morganforge/chitfund-console/internal/session"
)

var priya = Identity{ID: "u-7", Name: "priya", Role: RoleAgent}

func openTestRegistry(t *testing.T) *TokenRegistry {
	t.Helper()
	reg, err := OpenRegistry(filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

// =============================================================================
// IDENTITY TESTS
// =============================================================================

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{" Agent ", RoleAgent, false},
		{"MEMBER", RoleMember, false},
		{"", RoleMember, false},
		{"auditor", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownRole, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestIdentity_SessionUser(t *testing.T) {
	u := priya.SessionUser()
	assert.Equal(t, session.User{ID: "u-7", Name: "priya", Role: "agent"}, u)
}

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestRegistry_IssueAndLookup(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	id, err := reg.Issue(ctx, priya)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	tok, err := reg.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, priya, tok.Identity)
	assert.False(t, tok.Revoked())
	assert.WithinDuration(t, time.Now(), tok.IssuedAt, time.Minute)

	other, err := reg.Issue(ctx, priya)
	require.NoError(t, err)
	assert.NotEqual(t, id, other)

	n, err := reg.ActiveCount(ctx, priya.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRegistry_IssueRejectsEmptyIdentity(t *testing.T) {
	reg := openTestRegistry(t)
	_, err := reg.Issue(context.Background(), Identity{})
	assert.ErrorIs(t, err, ErrEmptyIdentity)
}

func TestRegistry_RevokeIsIdempotent(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()
	id, err := reg.Issue(ctx, priya)
	require.NoError(t, err)

	require.NoError(t, reg.Revoke(ctx, id))
	first, err := reg.Lookup(ctx, id)
	require.NoError(t, err)
	require.True(t, first.Revoked())

	require.NoError(t, reg.Revoke(ctx, id))
	second, err := reg.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, first.RevokedAt, second.RevokedAt, "second revoke keeps the original timestamp")

	n, err := reg.ActiveCount(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegistry_UnknownToken(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()

	assert.ErrorIs(t, reg.Revoke(ctx, "missing"), ErrTokenNotFound)
	_, err := reg.Lookup(ctx, "missing")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRegistry_AsSessionRevoker(t *testing.T) {
	reg := openTestRegistry(t)
	ctx := context.Background()
	id, err := reg.Issue(ctx, priya)
	require.NoError(t, err)

	mgr := session.NewManager(session.DefaultPolicy(), session.WithRevoker(reg))
	mgr.Start(priya.SessionUser(), id)
	mgr.Logout()
	mgr.Wait()

	tok, err := reg.Lookup(ctx, id)
	require.NoError(t, err)
	assert.True(t, tok.Revoked())
}

// =============================================================================
// HTTP REVOKER TESTS
// =============================================================================

func TestHTTPRevoker_PostsTokenID(t *testing.T) {
	var got revokeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rv := NewHTTPRevoker(HTTPRevokerConfig{URL: srv.URL})
	require.NoError(t, rv.Revoke(context.Background(), "rt-9"))
	assert.Equal(t, "rt-9", got.RefreshTokenID)
}

func TestHTTPRevoker_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	rv := NewHTTPRevoker(HTTPRevokerConfig{URL: srv.URL})
	err := rv.Revoke(context.Background(), "rt-9")
	assert.ErrorIs(t, err, ErrRevokeFailed)
	assert.Contains(t, err.Error(), "401")
}

func TestHTTPRevoker_RateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	rv := NewHTTPRevoker(HTTPRevokerConfig{URL: srv.URL, RatePerSecond: 0.001, Burst: 1})
	require.NoError(t, rv.Revoke(context.Background(), "a"))
	assert.ErrorIs(t, rv.Revoke(context.Background(), "b"), ErrRateLimited)
	assert.Equal(t, int32(1), hits.Load(), "denied calls are not sent")
}

func TestHTTPRevoker_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rv := NewHTTPRevoker(HTTPRevokerConfig{URL: srv.URL})
	assert.ErrorIs(t, rv.Revoke(ctx, "rt"), context.Canceled)
}

// =============================================================================
// FAN-OUT TESTS
// =============================================================================

func TestMultiRevoker(t *testing.T) {
	var calls []string
	ok := session.RevokerFunc(func(_ context.Context, id string) error {
		calls = append(calls, "ok:"+id)
		return nil
	})
	boom := errors.New("boom")
	bad := session.RevokerFunc(func(_ context.Context, id string) error {
		calls = append(calls, "bad:"+id)
		return boom
	})

	err := MultiRevoker{bad, nil, ok}.Revoke(context.Background(), "rt")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"bad:rt", "ok:rt"}, calls)

	assert.NoError(t, MultiRevoker{ok}.Revoke(context.Background(), "rt"))
	assert.NoError(t, MultiRevoker{}.Revoke(context.Background(), "rt"))
}
