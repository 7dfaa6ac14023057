package ignite

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// analysesTotal counts report generation by result.
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ignite_analyses_total",
		Help: "Total series analyses by result",
	}, []string{"result"})

	// analysisDuration tracks report generation latency.
	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ignite_analysis_duration_seconds",
		Help:    "Series analysis duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})

	// plateausDetected counts reports that flagged a plateau.
	plateausDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ignite_plateaus_detected_total",
		Help: "Total analyses that detected a plateau",
	})

	// pointsIngested counts stored measurements by source.
	pointsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ignite_points_ingested_total",
		Help: "Total measurements written to the SQL store by source",
	}, []string{"source"})

	// httpRequests counts API requests by route and status class.
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ignite_http_requests_total",
		Help: "Total HTTP API requests by route and status",
	}, []string{"route", "status"})

	// streamSubscribers is the number of connected websocket clients.
	streamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ignite_stream_subscribers",
		Help: "Connected report stream subscribers",
	})
)

func observeAnalysis(d time.Duration, r *Report, err error) {
	analysisDuration.Observe(d.Seconds())
	switch {
	case err == nil:
		analysesTotal.WithLabelValues("ok").Inc()
		if r != nil && r.Plateau.Plateau {
			plateausDetected.Inc()
		}
	case errors.Is(err, ErrEmptySeries), IsValidation(err):
		analysesTotal.WithLabelValues("invalid").Inc()
	default:
		analysesTotal.WithLabelValues("error").Inc()
	}
}
