// Package metrics defines and registers all custom Prometheus metrics for the
// marketplace API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketplace"

// ── Journal metrics ───────────────────────────────────────────────────────────

// JournalEventsTotal counts change events persisted to the journal.
// Label:
//   - kind: the change event kind (e.g. "Purchase", "AddedStore")
var JournalEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "journal_events_total",
		Help:      "Total number of change events persisted to the journal.",
	},
	[]string{"kind"},
)

// JournalErrorsTotal counts change events the journal dispatcher failed on.
// Label:
//   - stage: "append" (MongoDB write) or "publish" (Redis fan-out)
var JournalErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "journal_errors_total",
		Help:      "Total number of journal dispatcher failures, by stage.",
	},
	[]string{"stage"},
)

// JournalQueueDepth tracks the number of events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var JournalQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "journal_queue_depth",
		Help:      "Current number of change events pending in each journal worker channel.",
	},
	[]string{"worker_id"},
)

// JournalAppendDuration measures how long persisting one event takes.
var JournalAppendDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "journal_append_duration_seconds",
		Help:      "Duration from dequeue to journal persistence of one change event.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"kind"},
)

// ── Ledger metrics ────────────────────────────────────────────────────────────

// PurchasesTotal counts purchase attempts.
// Label:
//   - result: "ok", "invalid_payment", "out_of_stock", "not_found", "error"
var PurchasesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "purchases_total",
		Help:      "Total number of purchase attempts, by result.",
	},
	[]string{"result"},
)

// PurchaseReplaysTotal counts purchases short-circuited by an Idempotency-Key.
var PurchaseReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "purchase_replays_total",
		Help:      "Total number of purchase requests rejected as idempotent replays.",
	},
)

// WithdrawalsTotal counts withdrawals.
// Label:
//   - result: "ok", "empty" (nothing to withdraw), "error"
var WithdrawalsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "withdrawals_total",
		Help:      "Total number of withdrawals, by result.",
	},
	[]string{"result"},
)

// LedgerHeight is the seq of the last change event applied to the ledger.
var LedgerHeight = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ledger_height",
		Help:      "Sequence number of the last change event applied to the ledger.",
	},
)
