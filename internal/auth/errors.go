// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import "errors"

var (
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrUnknownRole   = errors.New("unknown role")
	ErrRateLimited   = errors.New("revocation rate limited")
	ErrRevokeFailed  = errors.New("revocation rejected by server")
	ErrEmptyIdentity = errors.New("identity has no ID")
)
