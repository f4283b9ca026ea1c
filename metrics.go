package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/quality"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
	"github.com/skywardops/telemetry-quality-engine/internal/service/validation"
)

var (
	verdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tqe",
			Subsystem: "engine",
			Name:      "verdicts_total",
			Help:      "Total number of verdicts issued",
		},
		[]string{"grade"},
	)

	quarantinedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tqe",
			Subsystem: "engine",
			Name:      "quarantined_total",
			Help:      "Total number of records quarantined",
		},
	)

	anomaliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tqe",
			Subsystem: "engine",
			Name:      "anomalies_total",
			Help:      "Total number of anomalies detected",
		},
		[]string{"type", "severity"},
	)

	validationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tqe",
			Subsystem: "engine",
			Name:      "validation_duration_seconds",
			Help:      "End to end validation duration per record",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 15), // 10μs to 160ms
		},
	)

	validationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tqe",
			Subsystem: "engine",
			Name:      "validation_errors_total",
			Help:      "Total number of records whose validation returned an error",
		},
	)
)

// MetricsHandler returns the Prometheus metrics handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// instrument wraps a validation service so the daemon's Prometheus endpoint
// sees every verdict.
func instrument(svc validation.Service) validation.Service {
	return &instrumentedService{svc: svc}
}

type instrumentedService struct {
	svc validation.Service
}

func (s *instrumentedService) Validate(ctx context.Context, rec *telemetry.Record) (*validation.Verdict, error) {
	start := time.Now()
	verdict, err := s.svc.Validate(ctx, rec)
	validationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		validationErrors.Inc()
	}
	if verdict != nil {
		verdictsTotal.WithLabelValues(verdict.Score.Grade.String()).Inc()
		if verdict.Quarantined() {
			quarantinedTotal.Inc()
		}
		for _, a := range verdict.Anomalies {
			anomaliesTotal.WithLabelValues(a.Type.String(), a.Severity.String()).Inc()
		}
	}
	return verdict, err
}

func (s *instrumentedService) Stats() quality.RunStats {
	return s.svc.Stats()
}
