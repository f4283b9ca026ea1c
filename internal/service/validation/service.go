package validation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skywardops/telemetry-quality-engine/internal/domain/anomaly"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/errors"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/quality"
	"github.com/skywardops/telemetry-quality-engine/internal/domain/telemetry"
	"github.com/skywardops/telemetry-quality-engine/internal/metrics"
)

// service orchestrates the scorer and detector around one record at a time.
type service struct {
	scorer   *quality.Scorer
	detector *anomaly.Detector

	repo       VerdictRepository
	quarantine QuarantineHandler
	history    HistoryProvider

	registry *metrics.Registry
	logger   *slog.Logger

	mu       sync.Mutex
	previous *previousRecords
	seeded   map[string]struct{}
}

// Options carries the optional collaborators; any field may be nil.
type Options struct {
	Repository VerdictRepository
	Quarantine QuarantineHandler
	History    HistoryProvider
	Registry   *metrics.Registry
	Logger     *slog.Logger
}

// NewService builds a validation service from validated scorer and detector
// instances.
func NewService(scorer *quality.Scorer, detector *anomaly.Detector, opts Options) Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		scorer:     scorer,
		detector:   detector,
		repo:       opts.Repository,
		quarantine: opts.Quarantine,
		history:    opts.History,
		registry:   opts.Registry,
		logger:     logger,
		previous:   newPreviousRecords(detector.Config().TrackMaxEntries),
		seeded:     make(map[string]struct{}),
	}
}

func (s *service) Validate(ctx context.Context, rec *telemetry.Record) (*Verdict, error) {
	receivedAt := time.Now()

	var prev *telemetry.Record
	var historical []*telemetry.Record
	entityID := ""
	if rec != nil {
		entityID = rec.EntityID
		prev = s.lookupPrevious(entityID)
		historical = s.seedHistory(ctx, entityID)
	}

	scoreStart := time.Now()
	score := s.scorer.Score(rec, prev)
	scoreDur := time.Since(scoreStart)

	detectStart := time.Now()
	anomalies := s.detector.Detect(rec, historical)
	detectDur := time.Since(detectStart)

	if rec != nil {
		s.storePrevious(entityID, rec)
	}

	s.recordMetrics(ctx, score, anomalies, scoreDur, detectDur)

	verdict := &Verdict{
		ID:         uuid.New(),
		EntityID:   entityID,
		ReceivedAt: receivedAt,
		Record:     rec,
		Score:      score,
		Anomalies:  anomalies,
	}

	if verdict.Quarantined() && s.quarantine != nil {
		if err := s.quarantine.Quarantine(ctx, verdict); err != nil {
			// Quarantine delivery is advisory; the verdict itself still
			// carries the decision.
			s.logger.WarnContext(ctx, "quarantine handler failed",
				slog.String("entity_id", entityID),
				slog.String("error", err.Error()))
		}
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, verdict); err != nil {
			return verdict, errors.Wrap(err, "save verdict")
		}
	}

	return verdict, nil
}

func (s *service) Stats() quality.RunStats {
	return s.scorer.Stats()
}

func (s *service) lookupPrevious(entityID string) *telemetry.Record {
	if entityID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previous.get(entityID)
}

func (s *service) storePrevious(entityID string, rec *telemetry.Record) {
	if entityID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previous.put(entityID, rec)
}

// seedHistory fetches recent records the first time an entity is seen so the
// detector's statistical baselines start warm. Fetch failures degrade to an
// unseeded baseline.
func (s *service) seedHistory(ctx context.Context, entityID string) []*telemetry.Record {
	if s.history == nil || entityID == "" {
		return nil
	}

	s.mu.Lock()
	_, done := s.seeded[entityID]
	if !done {
		s.seeded[entityID] = struct{}{}
	}
	if len(s.seeded) > s.previous.limit {
		s.seeded = map[string]struct{}{entityID: {}}
	}
	s.mu.Unlock()
	if done {
		return nil
	}

	records, err := s.history.RecentRecords(ctx, entityID, HistorySeedLimit)
	if err != nil {
		s.logger.WarnContext(ctx, "history seed failed",
			slog.String("entity_id", entityID),
			slog.String("error", err.Error()))
		return nil
	}
	return records
}

func (s *service) recordMetrics(ctx context.Context, score quality.Score, anomalies []anomaly.Anomaly, scoreDur, detectDur time.Duration) {
	if s.registry == nil {
		return
	}

	s.registry.RecordScoring(ctx,
		float64(scoreDur.Microseconds()),
		score.Overall,
		score.Grade.String(),
		score.ShouldQuarantine)

	types := make([]string, len(anomalies))
	severities := make([]string, len(anomalies))
	for i, a := range anomalies {
		types[i] = a.Type.String()
		severities[i] = a.Severity.String()
	}
	s.registry.RecordDetection(ctx, float64(detectDur.Microseconds()), types, severities)
	s.registry.SetTrackedEntities(int64(s.detector.Tracks().Entities()))
}
