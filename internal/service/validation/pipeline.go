package validation

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/errors"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
	"github.com/skywardops/telemetry-quality-engine/internal/metrics"
)

// PipelineConfig sizes the sharded worker pool.
type PipelineConfig struct {
	Workers    int
	QueueDepth int
}

// DefaultPipelineConfig returns a pool sized for a single-node deployment.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{Workers: 8, QueueDepth: 256}
}

// Pipeline fans records out to workers sharded by entity id, so records for
// one entity are always processed in arrival order on one goroutine while
// different entities proceed in parallel.
type Pipeline struct {
	cfg      PipelineConfig
	svc      Service
	registry *metrics.Registry
	logger   *slog.Logger

	pending atomic.Int64
}

// NewPipeline validates cfg and builds a pipeline over svc.
func NewPipeline(cfg PipelineConfig, svc Service, registry *metrics.Registry, logger *slog.Logger) (*Pipeline, error) {
	if cfg.Workers < 1 {
		return nil, errors.NewConfigError("INVALID_WORKERS", "pipeline needs at least one worker")
	}
	if cfg.QueueDepth < 1 {
		return nil, errors.NewConfigError("INVALID_QUEUE_DEPTH", "pipeline queue depth must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, svc: svc, registry: registry, logger: logger}, nil
}

// Run consumes source until its stream closes or ctx is cancelled, then
// drains every worker queue before returning.
func (p *Pipeline) Run(ctx context.Context, source RecordSource) error {
	queues := make([]chan *telemetry.Record, p.cfg.Workers)
	for i := range queues {
		queues[i] = make(chan *telemetry.Record, p.cfg.QueueDepth)
	}

	var wg sync.WaitGroup
	for i := range queues {
		wg.Add(1)
		go func(queue <-chan *telemetry.Record) {
			defer wg.Done()
			p.work(ctx, queue)
		}(queues[i])
	}

	stream := source.Records(ctx)

dispatch:
	for {
		select {
		case rec, ok := <-stream:
			if !ok {
				break dispatch
			}
			p.pending.Add(1)
			p.observeDepth()
			queues[p.shard(rec)] <- rec
		case <-ctx.Done():
			break dispatch
		}
	}

	for _, queue := range queues {
		close(queue)
	}
	wg.Wait()

	return ctx.Err()
}

// work processes one shard's records. The drain after cancellation is
// deliberate: queued records still get verdicts so nothing is silently lost.
func (p *Pipeline) work(ctx context.Context, queue <-chan *telemetry.Record) {
	for rec := range queue {
		if _, err := p.svc.Validate(ctx, rec); err != nil {
			entityID := ""
			if rec != nil {
				entityID = rec.EntityID
			}
			p.logger.ErrorContext(ctx, "record validation failed",
				slog.String("entity_id", entityID),
				slog.String("error", err.Error()))
		}
		p.pending.Add(-1)
		p.observeDepth()
	}
}

func (p *Pipeline) shard(rec *telemetry.Record) int {
	if rec == nil {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(rec.EntityID))
	return int(h.Sum32() % uint32(p.cfg.Workers))
}

func (p *Pipeline) observeDepth() {
	if p.registry != nil {
		p.registry.SetQueueDepth(p.pending.Load())
	}
}

// SliceSource is an in-memory RecordSource, used by tests and offline replay.
type SliceSource struct {
	records []*telemetry.Record
}

// NewSliceSource wraps records as a source that replays them in order.
func NewSliceSource(records []*telemetry.Record) *SliceSource {
	return &SliceSource{records: records}
}

func (s *SliceSource) Records(ctx context.Context) <-chan *telemetry.Record {
	out := make(chan *telemetry.Record)
	go func() {
		defer close(out)
		for _, rec := range s.records {
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
