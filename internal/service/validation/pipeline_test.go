package validation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/quality"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
)

// orderTracker records the per-entity sequence numbers each validation saw.
type orderTracker struct {
	mu   sync.Mutex
	seen map[string][]float64
}

func (o *orderTracker) Validate(_ context.Context, rec *telemetry.Record) (*Verdict, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen[rec.EntityID] = append(o.seen[rec.EntityID], *rec.LastContact)
	return &Verdict{EntityID: rec.EntityID}, nil
}

func (o *orderTracker) Stats() quality.RunStats { return quality.RunStats{} }

func TestPipeline_ProcessesAllRecords(t *testing.T) {
	svc := newTestService(t, Options{})
	pipeline, err := NewPipeline(DefaultPipelineConfig(), svc, nil, nil)
	require.NoError(t, err)

	records := make([]*telemetry.Record, 0, 50)
	for i := 0; i < 50; i++ {
		records = append(records, freshRecord(fmt.Sprintf("%06x", i%7)))
	}

	err = pipeline.Run(context.Background(), NewSliceSource(records))
	require.NoError(t, err)

	assert.Equal(t, int64(50), svc.Stats().RecordsProcessed)
}

func TestPipeline_PerEntityOrderPreserved(t *testing.T) {
	tracker := &orderTracker{seen: make(map[string][]float64)}
	pipeline, err := NewPipeline(PipelineConfig{Workers: 4, QueueDepth: 8}, tracker, nil, nil)
	require.NoError(t, err)

	var records []*telemetry.Record
	for seq := 0; seq < 40; seq++ {
		for _, id := range []string{"aaaaaa", "bbbbbb", "cccccc"} {
			rec := freshRecord(id)
			rec.LastContact = telemetry.Float(float64(seq))
			records = append(records, rec)
		}
	}

	err = pipeline.Run(context.Background(), NewSliceSource(records))
	require.NoError(t, err)

	for id, seqs := range tracker.seen {
		require.Len(t, seqs, 40, "entity %s", id)
		for i := 1; i < len(seqs); i++ {
			assert.Less(t, seqs[i-1], seqs[i], "entity %s out of order", id)
		}
	}
}

func TestPipeline_CancelDrainsQueues(t *testing.T) {
	svc := newTestService(t, Options{})
	pipeline, err := NewPipeline(PipelineConfig{Workers: 2, QueueDepth: 4}, svc, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- pipeline.Run(ctx, NewSliceSource([]*telemetry.Record{freshRecord("abc123")}))
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not shut down")
	}
}

func TestNewPipeline_RejectsBadConfig(t *testing.T) {
	svc := newTestService(t, Options{})

	_, err := NewPipeline(PipelineConfig{Workers: 0, QueueDepth: 4}, svc, nil, nil)
	assert.Error(t, err)

	_, err = NewPipeline(PipelineConfig{Workers: 2, QueueDepth: 0}, svc, nil, nil)
	assert.Error(t, err)
}
