// internal/metrics/metrics.go - Prometheus metrics for the read pipeline
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "maptile_reader"

var (
	// TilesScheduled counts reader tasks enqueued, by queue end.
	TilesScheduled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tiles_scheduled_total",
		Help:      "Reader tasks enqueued on the worker pool.",
	}, []string{"position"})

	// TilesCancelled counts tiles cancelled by viewport updates or stop.
	TilesCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tiles_cancelled_total",
		Help:      "Tiles cancelled before or during reading.",
	})

	// TilesRead counts reader tasks that ran to completion.
	TilesRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tiles_read_total",
		Help:      "Reader tasks completed without cancellation.",
	})

	// FeaturesDecoded counts features delivered to the engine context.
	FeaturesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "features_decoded_total",
		Help:      "Features decoded and delivered to the engine.",
	})

	// DecodeErrors counts corrupt records skipped during tile reads.
	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decode_errors_total",
		Help:      "Corrupt feature records skipped.",
	})

	// LiveTiles tracks the size of the manager's live tile set.
	LiveTiles = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_tiles",
		Help:      "Tiles currently scheduled or running.",
	})
)
