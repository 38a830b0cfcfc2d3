// Package metrics exposes the prometheus instruments shared by the storage,
// REST client and sync layers.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gymdesk"

var (
	queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Duration of SQLite calls grouped by operation.",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	}, []string{"op"})

	slowQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "db",
		Name:      "slow_queries_total",
		Help:      "Number of SQLite calls above the slow-query threshold.",
	}, []string{"op"})

	kvFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "kv",
		Name:      "failures_total",
		Help:      "Durable store failures swallowed by the store adapter, by key and operation.",
	}, []string{"key", "op"})

	apiRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "REST calls grouped by endpoint and status code (0 for transport errors).",
	}, []string{"endpoint", "code"})

	apiDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "REST call latency grouped by endpoint.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	syncProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "entries_processed_total",
		Help:      "Outbox entries processed grouped by action type and result.",
	}, []string{"action_type", "result"})

	syncPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "pending_entries",
		Help:      "Outbox entries waiting for delivery at the end of the last pass.",
	})

	activityAppended = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "activity",
		Name:      "appended_total",
		Help:      "Activity log entries appended grouped by action.",
	}, []string{"action"})
)

func init() {
	prometheus.MustRegister(queryDuration, slowQueries, kvFailures, apiRequests, apiDuration,
		syncProcessed, syncPending, activityAppended)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveQuery records the duration of one database call.
func ObserveQuery(op string, d time.Duration, slow bool) {
	queryDuration.WithLabelValues(op).Observe(d.Seconds())
	if slow {
		slowQueries.WithLabelValues(op).Inc()
	}
}

// RecordKVFailure counts a swallowed durable-store failure.
func RecordKVFailure(key, op string) {
	kvFailures.WithLabelValues(key, op).Inc()
}

// ObserveAPI records a REST call. code is 0 when the request never got a response.
func ObserveAPI(endpoint string, code int, d time.Duration) {
	apiRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	apiDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordSync counts one processed outbox entry.
func RecordSync(actionType, result string) {
	syncProcessed.WithLabelValues(actionType, result).Inc()
}

// SetSyncPending publishes the outbox backlog.
func SetSyncPending(n int) {
	syncPending.Set(float64(n))
}

// RecordActivity counts an appended activity.
func RecordActivity(action string) {
	activityAppended.WithLabelValues(action).Inc()
}
