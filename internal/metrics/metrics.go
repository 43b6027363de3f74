// Package metrics holds the Prometheus collectors for upload batches.
//
// Collectors are registered with the default registry on import and exposed by the preview server at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BatchesStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediadesk_upload_batches_total",
			Help: "Total number of upload batches started",
		},
		[]string{"transport"},
	)
	ItemsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediadesk_upload_items_total",
			Help: "Total number of upload items that reached a terminal state",
		},
		[]string{"transport", "kind", "state"},
	)
	BytesUploaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediadesk_upload_bytes_total",
			Help: "Total number of bytes in successfully uploaded items",
		},
		[]string{"transport", "kind"},
	)
	ItemDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediadesk_upload_item_duration_seconds",
			Help:    "Time from an item entering uploading to its terminal state",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"transport", "state"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediadesk_upload_items_in_flight",
			Help: "Number of items currently uploading",
		},
	)
	SanitizedRenders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediadesk_preview_renders_total",
			Help: "Total number of sanitized preview pages served",
		},
		[]string{"page"},
	)
)

func init() {
	prometheus.MustRegister(BatchesStarted)
	prometheus.MustRegister(ItemsCompleted)
	prometheus.MustRegister(BytesUploaded)
	prometheus.MustRegister(ItemDuration)
	prometheus.MustRegister(InFlight)
	prometheus.MustRegister(SanitizedRenders)
}
