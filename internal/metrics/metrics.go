// Copyright (c) 2025-2026 The txpackd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metrics exposes Prometheus instrumentation for packaging and block
// verification.  A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "txpackd"

// Outcomes of a packaging round.
const (
	RoundTemplate = "template"
	RoundEmpty    = "empty"
	RoundTimeout  = "timeout"
	RoundUpgrade  = "upgrade"
	RoundError    = "error"
)

// Outcomes of a block verification besides the error code names.
const (
	VerifyOK = "ok"
)

// Metrics holds the collectors.
type Metrics struct {
	TxsPackaged prometheus.Counter
	TxsOrphaned prometheus.Counter
	TxsPurged   prometheus.Counter
	TxsRequeued prometheus.Counter

	Rounds        *prometheus.CounterVec
	RoundDuration prometheus.Histogram

	BlockVerifications *prometheus.CounterVec
	VerifyDuration     prometheus.Histogram

	PoolSize *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TxsPackaged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "txs_packaged_total",
			Help:      "Transactions placed in a candidate block",
		}),
		TxsOrphaned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "txs_orphaned_total",
			Help:      "Transactions the ledger reported as orphans",
		}),
		TxsPurged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "txs_purged_total",
			Help:      "Transactions permanently removed as invalid",
		}),
		TxsRequeued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "txs_requeued_total",
			Help:      "Transactions returned to the pending pool",
		}),
		Rounds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "package_rounds_total",
			Help:      "Packaging rounds by outcome",
		}, []string{"outcome"}),
		RoundDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "package_round_seconds",
			Help:      "Packaging round latency in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		BlockVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "block_verifications_total",
			Help:      "Block verifications by outcome",
		}, []string{"outcome"}),
		VerifyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "block_verification_seconds",
			Help:      "Block verification latency in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		PoolSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "pending_pool_size",
			Help:      "Pending transactions per chain",
		}, []string{"chain"}),
	}
}

// RecordRound records the outcome and latency of a packaging round together
// with the number of transactions it packaged.
func (m *Metrics) RecordRound(outcome string, packaged int, d time.Duration) {
	if m == nil {
		return
	}
	m.Rounds.WithLabelValues(outcome).Inc()
	m.RoundDuration.Observe(d.Seconds())
	m.TxsPackaged.Add(float64(packaged))
}

// RecordVerification records the outcome and latency of a block verification.
func (m *Metrics) RecordVerification(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.BlockVerifications.WithLabelValues(outcome).Inc()
	m.VerifyDuration.Observe(d.Seconds())
}

// AddOrphaned counts orphaned transactions.
func (m *Metrics) AddOrphaned(n int) {
	if m == nil || n == 0 {
		return
	}
	m.TxsOrphaned.Add(float64(n))
}

// AddPurged counts purged transactions.
func (m *Metrics) AddPurged(n int) {
	if m == nil || n == 0 {
		return
	}
	m.TxsPurged.Add(float64(n))
}

// AddRequeued counts transactions returned to the pool.
func (m *Metrics) AddRequeued(n int) {
	if m == nil || n == 0 {
		return
	}
	m.TxsRequeued.Add(float64(n))
}

// SetPoolSize records the number of pending transactions of a chain.
func (m *Metrics) SetPoolSize(chain string, n int) {
	if m == nil {
		return
	}
	m.PoolSize.WithLabelValues(chain).Set(float64(n))
}

// Handler returns the HTTP handler serving the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
