// Package metrics contains the prometheus instrumentation of proof generation and verification.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vdf"

// Status labels.
const (
	StatusOK       = "ok"
	StatusRejected = "rejected"
	StatusError    = "error"
)

type ProvingMetrics struct {
	proofs    *prometheus.CounterVec
	latencies *prometheus.HistogramVec
	squarings *prometheus.CounterVec
}

type VerifyingMetrics struct {
	verifications *prometheus.CounterVec
	latencies     *prometheus.HistogramVec
}

// NewProvingMetrics creates the instrumentation of proof generation:
//
// 1. Counts of generated proofs, partitioned by group, proof type, strategy and status.
// 2. Latencies of proof generation.
// 3. Counts of sequential squarings performed.
func NewProvingMetrics() ProvingMetrics {
	m := ProvingMetrics{
		proofs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proving",
				Name:      "proofs_total",
				Help:      "How many proofs were generated, partitioned by group, proof type, strategy and status.",
			},
			[]string{"group", "proof", "strategy", "status"},
		),
		latencies: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "proving",
				Name:      "latency_seconds",
				Help:      "How long proof generation takes, partitioned by group and proof type.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 12),
			},
			[]string{"group", "proof"},
		),
		squarings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proving",
				Name:      "squarings_total",
				Help:      "How many sequential squarings were requested, partitioned by group.",
			},
			[]string{"group"},
		),
	}
	m.proofs = registerOnce(m.proofs).(*prometheus.CounterVec)
	m.latencies = registerOnce(m.latencies).(*prometheus.HistogramVec)
	m.squarings = registerOnce(m.squarings).(*prometheus.CounterVec)
	return m
}

func (m *ProvingMetrics) Proofs(group, proof, strategy, status string) prometheus.Counter {
	return m.proofs.WithLabelValues(group, proof, strategy, status)
}

// Latency returns a new timer for a proof generation.
func (m *ProvingMetrics) Latency(group, proof string) *prometheus.Timer {
	return prometheus.NewTimer(m.latencies.WithLabelValues(group, proof))
}

func (m *ProvingMetrics) Squarings(group string) prometheus.Counter {
	return m.squarings.WithLabelValues(group)
}

// NewVerifyingMetrics creates the instrumentation of proof verification:
//
// 1. Counts of verifications, partitioned by group, proof type and status.
// 2. Latencies of verifications.
func NewVerifyingMetrics() VerifyingMetrics {
	m := VerifyingMetrics{
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "verifying",
				Name:      "verifications_total",
				Help:      "How many proofs were verified, partitioned by group, proof type and status.",
			},
			[]string{"group", "proof", "status"},
		),
		latencies: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "verifying",
				Name:      "latency_seconds",
				Help:      "How long verification takes, partitioned by group and proof type.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"group", "proof"},
		),
	}
	m.verifications = registerOnce(m.verifications).(*prometheus.CounterVec)
	m.latencies = registerOnce(m.latencies).(*prometheus.HistogramVec)
	return m
}

func (m *VerifyingMetrics) Verifications(group, proof, status string) prometheus.Counter {
	return m.verifications.WithLabelValues(group, proof, status)
}

// Latency returns a new timer for a verification.
func (m *VerifyingMetrics) Latency(group, proof string) *prometheus.Timer {
	return prometheus.NewTimer(m.latencies.WithLabelValues(group, proof))
}
