// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth is the auth collaborator of the session manager.
//
// It models console identities and roles, keeps a local SQLite registry of
// issued refresh-token handles, and revokes them locally or through the remote
// data service. Every revoker here satisfies session.Revoker; the manager
// calls them best-effort and ignores the outcome.
//
// # Key Types
//
//   - Identity, Role: admin, agent and member principals
//   - TokenRegistry: SQLite-backed handle registry
//   - HTTPRevoker: rate-limited remote revocation
//   - MultiRevoker: fan-out to several revokers
package auth
