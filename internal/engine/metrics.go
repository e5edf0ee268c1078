package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	calibrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pompom_calibrations_total",
			Help: "Total number of calibration attempts",
		},
		[]string{"result"}, // result: success, shortfall, degenerate, error
	)

	frameDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pompom_frame_duration_seconds",
			Help:    "Per-frame warp and classification duration in seconds",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"op"}, // op: warp_stencil, warp_image, classify_panels, classify_blobs
	)

	frameTimeoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pompom_frame_timeouts_total",
			Help: "Total number of per-frame calls that exceeded the frame timeout",
		},
		[]string{"op"},
	)

	regionsClassified = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pompom_regions_classified",
			Help:    "Number of connected regions per classification",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
		[]string{"kind", "passed"},
	)

	goLiveTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pompom_go_live_total",
			Help: "Total number of animation clocks issued",
		},
	)
)
