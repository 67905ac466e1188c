// Package metrics は貸与まわりの運用カウンタ。/metrics で公開する。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AllocationsTotal counts allocate attempts by result (ok / conflict / error).
	AllocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hram",
		Subsystem: "allocations",
		Name:      "total",
		Help:      "Asset allocation attempts by result.",
	}, []string{"result"})

	// ReturnsTotal counts return attempts by result (ok / already_returned / error).
	ReturnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hram",
		Subsystem: "returns",
		Name:      "total",
		Help:      "Asset return attempts by result.",
	}, []string{"result"})

	// RequestDecisionsTotal counts approve/reject decisions by outcome.
	RequestDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hram",
		Subsystem: "requests",
		Name:      "decisions_total",
		Help:      "Asset request decisions by action and result.",
	}, []string{"action", "result"})
)
