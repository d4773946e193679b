// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const registrySchema = `
CREATE TABLE IF NOT EXISTS refresh_tokens (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    user_name TEXT NOT NULL,
    role TEXT NOT NULL,
    issued_at INTEGER NOT NULL,  -- Unix nanoseconds
    revoked_at INTEGER           -- NULL while valid
);

CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id);
`

// Token is one issued refresh credential.
type Token struct {
	ID        string
	Identity  Identity
	IssuedAt  time.Time
	RevokedAt time.Time // zero while valid
}

// Revoked reports whether the token has been revoked.
func (t Token) Revoked() bool {
	return !t.RevokedAt.IsZero()
}

// TokenRegistry records refresh-token handles in SQLite and revokes them.
// It satisfies session.Revoker.
type TokenRegistry struct {
	db  *sql.DB
	now func() time.Time
}

// OpenRegistry opens (creating if needed) the registry database at path.
// Use ":memory:" for a throwaway registry.
func OpenRegistry(path string) (*TokenRegistry, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create registry directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(registrySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &TokenRegistry{db: db, now: time.Now}, nil
}

// Issue records a new refresh-token handle for identity and returns its ID.
func (r *TokenRegistry) Issue(ctx context.Context, identity Identity) (string, error) {
	if identity.ID == "" {
		return "", ErrEmptyIdentity
	}

	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, user_name, role, issued_at) VALUES (?, ?, ?, ?, ?)`,
		id, identity.ID, identity.Name, string(identity.Role), r.now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}
	return id, nil
}

// Lookup returns the token with the given ID.
func (r *TokenRegistry) Lookup(ctx context.Context, id string) (Token, error) {
	var (
		tok       Token
		role      string
		issuedAt  int64
		revokedAt sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, user_name, role, issued_at, revoked_at FROM refresh_tokens WHERE id = ?`, id).
		Scan(&tok.ID, &tok.Identity.ID, &tok.Identity.Name, &role, &issuedAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Token{}, fmt.Errorf("%w: %s", ErrTokenNotFound, id)
	}
	if err != nil {
		return Token{}, fmt.Errorf("failed to look up token: %w", err)
	}

	tok.Identity.Role = Role(role)
	tok.IssuedAt = time.Unix(0, issuedAt)
	if revokedAt.Valid {
		tok.RevokedAt = time.Unix(0, revokedAt.Int64)
	}
	return tok, nil
}

// Revoke marks the token revoked. Revoking twice is not an error.
func (r *TokenRegistry) Revoke(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = COALESCE(revoked_at, ?) WHERE id = ?`,
		r.now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrTokenNotFound, id)
	}
	return nil
}

// ActiveCount returns how many tokens are still unrevoked for userID.
// An empty userID counts across all users.
func (r *TokenRegistry) ActiveCount(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM refresh_tokens WHERE revoked_at IS NULL`
	args := []any{}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (r *TokenRegistry) Close() error {
	return r.db.Close()
}
