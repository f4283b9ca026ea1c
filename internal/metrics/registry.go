package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds the engine's domain metrics.
type Registry struct {
	meter metric.Meter

	// Scoring metrics
	ScoringDuration   metric.Float64Histogram
	RecordCounter     metric.Int64Counter
	QuarantineCounter metric.Int64Counter
	QualityScore      metric.Float64Histogram
	MeanScoreGauge    metric.Float64ObservableGauge

	// Anomaly metrics
	AnomalyCounter    metric.Int64Counter
	DetectionDuration metric.Float64Histogram

	// Pipeline metrics
	PipelineQueueDepth metric.Int64ObservableGauge
	TrackedEntities    metric.Int64ObservableGauge

	// State for observable metrics
	mu              sync.RWMutex
	scoreSum        float64
	scoreCount      int64
	queueDepth      int64
	trackedEntities int64
}

// NewRegistry creates the metrics registry on the named meter.
func NewRegistry(meterName string) (*Registry, error) {
	r := &Registry{meter: otel.Meter(meterName)}

	if err := r.initScoringMetrics(); err != nil {
		return nil, err
	}
	if err := r.initAnomalyMetrics(); err != nil {
		return nil, err
	}
	if err := r.initPipelineMetrics(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Registry) initScoringMetrics() error {
	var err error

	r.ScoringDuration, err = r.meter.Float64Histogram(
		"tqe.quality.scoring_duration",
		metric.WithDescription("Quality scoring duration in microseconds"),
		metric.WithUnit("us"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return err
	}

	r.RecordCounter, err = r.meter.Int64Counter(
		"tqe.quality.records_total",
		metric.WithDescription("Total records scored"),
	)
	if err != nil {
		return err
	}

	r.QuarantineCounter, err = r.meter.Int64Counter(
		"tqe.quality.quarantined_total",
		metric.WithDescription("Total records quarantined"),
	)
	if err != nil {
		return err
	}

	r.QualityScore, err = r.meter.Float64Histogram(
		"tqe.quality.score",
		metric.WithDescription("Per-record overall quality score"),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0),
	)
	if err != nil {
		return err
	}

	r.MeanScoreGauge, err = r.meter.Float64ObservableGauge(
		"tqe.quality.mean_score",
		metric.WithDescription("Running mean overall quality score"),
		metric.WithFloat64Callback(func(ctx context.Context, o metric.Float64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			if r.scoreCount > 0 {
				o.Observe(r.scoreSum / float64(r.scoreCount))
			}
			return nil
		}),
	)

	return err
}

func (r *Registry) initAnomalyMetrics() error {
	var err error

	r.AnomalyCounter, err = r.meter.Int64Counter(
		"tqe.anomaly.detected_total",
		metric.WithDescription("Total anomalies detected"),
	)
	if err != nil {
		return err
	}

	r.DetectionDuration, err = r.meter.Float64Histogram(
		"tqe.anomaly.detection_duration",
		metric.WithDescription("Anomaly detection duration in microseconds"),
		metric.WithUnit("us"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 500, 1000, 5000),
	)

	return err
}

func (r *Registry) initPipelineMetrics() error {
	var err error

	r.PipelineQueueDepth, err = r.meter.Int64ObservableGauge(
		"tqe.pipeline.queue_depth",
		metric.WithDescription("Records waiting across pipeline shards"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.queueDepth)
			return nil
		}),
	)
	if err != nil {
		return err
	}

	r.TrackedEntities, err = r.meter.Int64ObservableGauge(
		"tqe.pipeline.tracked_entities",
		metric.WithDescription("Entities currently held in the track cache"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.trackedEntities)
			return nil
		}),
	)

	return err
}

// SetQueueDepth sets the pipeline queue depth.
func (r *Registry) SetQueueDepth(depth int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queueDepth = depth
}

// SetTrackedEntities sets the track cache entity count.
func (r *Registry) SetTrackedEntities(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trackedEntities = n
}

// RecordScoring records one scored record.
func (r *Registry) RecordScoring(ctx context.Context, durationUS, overall float64, grade string, quarantined bool) {
	attrs := []attribute.KeyValue{
		attribute.String("grade", grade),
		attribute.Bool("quarantined", quarantined),
	}

	r.ScoringDuration.Record(ctx, durationUS, metric.WithAttributes(attrs...))
	r.QualityScore.Record(ctx, overall, metric.WithAttributes(attrs...))
	r.RecordCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	if quarantined {
		r.QuarantineCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	r.mu.Lock()
	r.scoreSum += overall
	r.scoreCount++
	r.mu.Unlock()
}

// RecordDetection records one detection pass.
func (r *Registry) RecordDetection(ctx context.Context, durationUS float64, anomalyTypes []string, severities []string) {
	r.DetectionDuration.Record(ctx, durationUS)

	for i, typ := range anomalyTypes {
		severity := "unknown"
		if i < len(severities) {
			severity = severities[i]
		}
		r.AnomalyCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", typ),
			attribute.String("severity", severity),
		))
	}
}
