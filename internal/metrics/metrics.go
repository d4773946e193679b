// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes session lifecycle counters to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morganforge/chitfund-console/internal/session"
)

const namespace = "chitfund"

// Revocation results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the session collectors. Pass it to the components that
// record into it.
type Metrics struct {
	Transitions   *prometheus.CounterVec
	PhaseChanges  *prometheus.CounterVec
	Revocations   *prometheus.CounterVec
	TimeRemaining prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	return &Metrics{
		Transitions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "transitions_total",
				Help:      "Explicit session transitions",
			},
			[]string{"event"}, // started/extended/logged_out
		),
		PhaseChanges: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "phase_changes_total",
				Help:      "Phase changes observed by pollers, by entered phase",
			},
			[]string{"phase"},
		),
		Revocations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "revocations_total",
				Help:      "Refresh-token revocation attempts",
			},
			[]string{"result"}, // ok/error
		),
		TimeRemaining: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "time_remaining_seconds",
				Help:      "Seconds until the current session expires, 0 without a session",
			},
		),
		gatherer: reg,
	}
}

// Observe subscribes to mgr's transitions and returns the unsubscribe function.
func (m *Metrics) Observe(mgr *session.Manager) func() {
	return mgr.Subscribe(func(ev session.Event) {
		m.Transitions.WithLabelValues(ev.Type.String()).Inc()
	})
}

// ObservePhaseChange has the shape of session.Poller.OnPhaseChange.
func (m *Metrics) ObservePhaseChange(_, to session.Phase, info session.Info) {
	m.PhaseChanges.WithLabelValues(to.String()).Inc()
	m.ObserveSnapshot(info)
}

// ObserveSnapshot updates the time-remaining gauge.
func (m *Metrics) ObserveSnapshot(info session.Info) {
	m.TimeRemaining.Set(info.TimeRemaining.Seconds())
}

// InstrumentRevoker counts the outcome of every call to r.
func (m *Metrics) InstrumentRevoker(r session.Revoker) session.Revoker {
	return session.RevokerFunc(func(ctx context.Context, refreshTokenID string) error {
		err := r.Revoke(ctx, refreshTokenID)
		result := ResultOK
		if err != nil {
			result = ResultError
		}
		m.Revocations.WithLabelValues(result).Inc()
		return err
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
