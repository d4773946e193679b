// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/morganforge/chitfund-console/internal/session"
)

// =============================================================================
// HTTP REVOKER
// =============================================================================

// HTTPRevokerConfig holds configuration for the remote revocation endpoint.
type HTTPRevokerConfig struct {
	// URL is the full revoke endpoint, e.g. https://api.example/auth/revoke
	URL string

	// Timeout for a single request (default: 10s)
	Timeout time.Duration

	// RatePerSecond and Burst bound outgoing revocations (default: 2/s, burst 5).
	RatePerSecond float64
	Burst         int
}

// HTTPRevoker asks the remote data service to revoke a refresh token.
// It does not retry; a call denied by the limiter fails with ErrRateLimited.
type HTTPRevoker struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

type revokeRequest struct {
	RefreshTokenID string `json:"refresh_token_id"`
}

// NewHTTPRevoker creates an HTTPRevoker.
func NewHTTPRevoker(cfg HTTPRevokerConfig) *HTTPRevoker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	return &HTTPRevoker{
		url:     cfg.URL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
	}
}

// Revoke posts the token ID to the revoke endpoint.
func (h *HTTPRevoker) Revoke(ctx context.Context, refreshTokenID string) error {
	if !h.limiter.Allow() {
		return ErrRateLimited
	}

	body, err := json.Marshal(revokeRequest{RefreshTokenID: refreshTokenID})
	if err != nil {
		return fmt.Errorf("failed to encode revoke request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("revoke request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrRevokeFailed, resp.StatusCode)
	}
	return nil
}

// =============================================================================
// FAN-OUT
// =============================================================================

// MultiRevoker revokes with every wrapped revoker and joins their errors.
// All revokers are attempted even when an earlier one fails.
type MultiRevoker []session.Revoker

// Revoke calls each revoker in order.
func (m MultiRevoker) Revoke(ctx context.Context, refreshTokenID string) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Revoke(ctx, refreshTokenID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
