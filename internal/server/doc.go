// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the local operations endpoint of the console.
//
// # Endpoints
//
//   - GET /health  - Liveness check
//   - GET /session - Current session snapshot (phase, user, remaining time)
//   - GET /metrics - Prometheus metrics, when a metrics handler is set
//
// The endpoint is read-only and binds to loopback by default. Refresh-token
// handles are never exposed.
//
// # Usage
//
//	srv := server.NewServer(cfg.Metrics.ListenAddr,
//		server.WithSnapshotter(mgr),
//		server.WithMetricsHandler(m.Handler()),
//	)
//	go srv.Run(ctx)
package server
