// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/holoauth/internal/auth"
)

// Metrics contains the holoauth Prometheus metrics. It implements
// auth.Recorder.
type Metrics struct {
	OperationsTotal *prometheus.CounterVec
	ReplaysTotal    prometheus.Counter
	RevokedTotal    prometheus.Counter
	RequestsTotal   *prometheus.CounterVec
	SweptTotal      prometheus.Counter
	StoreUp         prometheus.Gauge
}

// NewMetrics creates and registers the holoauth metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holoauth_operations_total",
				Help: "Total number of authentication operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		ReplaysTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holoauth_refresh_replays_total",
			Help: "Total number of already-used refresh tokens presented again",
		}),
		RevokedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holoauth_refresh_tokens_revoked_total",
			Help: "Total number of refresh tokens revoked",
		}),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holoauth_http_requests_total",
				Help: "Total number of HTTP API requests by route and status code",
			},
			[]string{"route", "status"},
		),
		SweptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "holoauth_refresh_tokens_swept_total",
			Help: "Total number of expired refresh tokens deleted by the sweep",
		}),
		StoreUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "holoauth_credential_store_up",
			Help: "Whether the last readiness check reached the credential store (1) or not (0)",
		}),
	}

	reg.MustRegister(m.OperationsTotal, m.ReplaysTotal, m.RevokedTotal, m.RequestsTotal, m.SweptTotal, m.StoreUp)

	return m
}

// RecordOperation implements auth.Recorder.
func (m *Metrics) RecordOperation(op, outcome string) {
	m.OperationsTotal.WithLabelValues(op, outcome).Inc()
}

// RecordReplay implements auth.Recorder.
func (m *Metrics) RecordReplay() {
	m.ReplaysTotal.Inc()
}

// RecordRevoked implements auth.Recorder.
func (m *Metrics) RecordRevoked(count int64) {
	if count > 0 {
		m.RevokedTotal.Add(float64(count))
	}
}

// RecordRequest counts one HTTP API request.
func (m *Metrics) RecordRequest(route, status string) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
}

// RecordSwept counts tokens removed by the expiry sweep.
func (m *Metrics) RecordSwept(count int64) {
	if count > 0 {
		m.SweptTotal.Add(float64(count))
	}
}

// SetStoreUp records the outcome of a readiness check.
func (m *Metrics) SetStoreUp(up bool) {
	if up {
		m.StoreUp.Set(1)
		return
	}
	m.StoreUp.Set(0)
}

var _ auth.Recorder = (*Metrics)(nil)
