// FILE: metrics.go
// Package main – Prometheus metrics surface (ambient, §4.8 "/metrics").
//
// The teacher registers its trading counters/gauges at package init with
// promauto; this keeps that idiom but renames the surface for the
// market-data/inference domain: request counts, signals by decision,
// inference latency, and a model-loaded gauge.
package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mtxSignalRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nirvana_signal_requests_total",
		Help: "Total /signal requests served.",
	})

	mtxDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nirvana_decisions_total",
		Help: "Signals emitted, partitioned by decision.",
	}, []string{"decision"})

	mtxInferenceLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nirvana_inference_latency_seconds",
		Help:    "Wall-clock latency of one C4->C5->C6 predict() call.",
		Buckets: prometheus.DefBuckets,
	})

	mtxModelLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nirvana_model_loaded",
		Help: "1 if the inference engine is in the LOADED state, 0 if degraded.",
	})

	mtxSchedulerCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nirvana_scheduler_cycles_total",
		Help: "Completed scheduler cycles.",
	})

	mtxSchedulerTaskErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nirvana_scheduler_task_errors_total",
		Help: "Per-task scheduler failures, partitioned by stage.",
	}, []string{"stage"})
)
