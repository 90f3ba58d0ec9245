// Package metrics holds the Prometheus collectors of the ledger service.
// They are registered on the default registry and served by promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultOK     = "ok"
	ResultLocked = "locked"
	ResultError  = "error"
)

// LedgerMutations counts store mutations by operation and result.
var LedgerMutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chitieu",
	Subsystem: "ledger",
	Name:      "mutations_total",
	Help:      "Ledger mutations by operation and result (ok, locked, error).",
}, []string{"op", "result"})

// ImportRecords counts records seen by the import pipeline.
var ImportRecords = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chitieu",
	Subsystem: "import",
	Name:      "records_total",
	Help:      "Import records by outcome (imported, rejected, locked).",
}, []string{"outcome"})

// Analysis counts commentary requests by outcome.
var Analysis = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chitieu",
	Name:      "analysis_total",
	Help:      "Spending analyses by outcome (remote, fallback, cached).",
}, []string{"outcome"})

// PersistErrors counts failed writes of the persisted blobs.
var PersistErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chitieu",
	Name:      "persist_errors_total",
	Help:      "Failed writes of persisted state by blob (sessions, group_events, theme).",
}, []string{"blob"})

// RateLimited counts requests rejected by the rate limiter.
var RateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "chitieu",
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the rate limiter.",
})

// SuspiciousRequests counts requests flagged by the security detector.
var SuspiciousRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "chitieu",
	Subsystem: "http",
	Name:      "suspicious_requests_total",
	Help:      "Requests that look like scans, by reason.",
}, []string{"reason"})
