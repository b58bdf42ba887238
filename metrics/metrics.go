/*
Package metrics exposes the Prometheus collectors the Sync Engine
updates on every pass, following cuemby/warren's convention of a
small package-level collector set registered once and referenced by the
components that produce measurements.
*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RecordsSynced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "replica_sync",
		Name:      "records_synced_total",
		Help:      "Documents successfully upserted, by entity.",
	}, []string{"entity"})

	RecordsDeleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "replica_sync",
		Name:      "records_deleted_total",
		Help:      "Documents deleted during reconciliation, by entity.",
	}, []string{"entity"})

	PoisonRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "replica_sync",
		Name:      "poison_rows_total",
		Help:      "Rows skipped due to malformed data, by entity.",
	}, []string{"entity"})

	PassFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "replica_sync",
		Name:      "pass_failures_total",
		Help:      "Passes that ended in failure, by entity.",
	}, []string{"entity"})

	PassDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "replica_sync",
		Name:      "pass_duration_seconds",
		Help:      "Wall-clock duration of one entity pass.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"entity"})
)

// Registry is the collector registry statusapi serves at /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(RecordsSynced, RecordsDeleted, PoisonRows, PassFailures, PassDuration)
}

// ObservePassDuration is a small helper so call sites read as one line:
// defer metrics.ObservePassDuration(entity, time.Now())
func ObservePassDuration(entity string, start time.Time) {
	PassDuration.WithLabelValues(entity).Observe(time.Since(start).Seconds())
}
