// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "context"

// Revoker is the auth collaborator that invalidates a refresh token
// server-side. The manager calls it fire-and-forget from Logout and never
// retries; retry policy, if any, belongs to the implementation.
type Revoker interface {
	Revoke(ctx context.Context, refreshTokenID string) error
}

// RevokerFunc adapts a function to the Revoker interface.
type RevokerFunc func(ctx context.Context, refreshTokenID string) error

// Revoke calls f.
func (f RevokerFunc) Revoke(ctx context.Context, refreshTokenID string) error {
	return f(ctx, refreshTokenID)
}
