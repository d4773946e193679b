// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"fmt"
	"strings"

	"github.com/morganforge/chitfund-console/internal/session"
)

// Role is a chit-fund console role.
type Role string

const (
	// RoleAdmin manages funds, agents and members.
	RoleAdmin Role = "admin"
	// RoleAgent collects installments and runs auctions.
	RoleAgent Role = "agent"
	// RoleMember views their own chits and payments.
	RoleMember Role = "member"
)

// ParseRole parses a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleAgent, RoleMember:
		return r, nil
	case "":
		return RoleMember, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Identity is the authenticated principal handed to the session manager.
type Identity struct {
	ID   string
	Name string
	Role Role
}

// SessionUser converts the identity to the manager's opaque user reference.
func (i Identity) SessionUser() session.User {
	return session.User{ID: i.ID, Name: i.Name, Role: string(i.Role)}
}
