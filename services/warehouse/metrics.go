package warehouse

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSnapshotsLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invdash_snapshots_loaded_total",
		Help: "Number of snapshot loads committed to the warehouse.",
	})

	metricRowsStaged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invdash_rows_staged_total",
		Help: "Raw snapshot rows copied into the staging table.",
	})

	metricDimInserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invdash_dimension_inserts_total",
		Help: "Dimension rows inserted, by dimension.",
	}, []string{"dimension"})

	metricDimExpirations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invdash_dimension_expirations_total",
		Help: "Dimension rows expired, by dimension.",
	}, []string{"dimension"})

	metricFactRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invdash_fact_rows_total",
		Help: "Fact rows appended, by kind.",
	}, []string{"kind"})

	metricLocationMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invdash_location_join_misses_total",
		Help: "Snapshot rows excluded because their location had no active dimension row.",
	})
)
