package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ectdforge_exports_total",
		Help: "Export runs by terminal status.",
	}, []string{"status"})

	exportBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ectdforge_export_bytes_total",
		Help: "Total bytes written into export packages.",
	})

	exportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ectdforge_export_duration_seconds",
		Help:    "Wall time of successful export runs.",
		Buckets: prometheus.DefBuckets,
	})
)
