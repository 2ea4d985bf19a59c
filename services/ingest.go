package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/goccy/go-json"

	"kucukaslan/activity/config"
	"kucukaslan/activity/domain"
	"kucukaslan/activity/logging"
	"kucukaslan/activity/metrics"
	"kucukaslan/activity/validations"
)

var _ domain.IngestService = &IngestService{}

const (
	sourceTrack      = "track"
	sourceMiddleware = "middleware"
	sourceBulk       = "bulk"
)

// IngestService turns validated drafts into events and hands them to the batcher.
type IngestService struct {
	store   domain.ActivityStore
	dedup   domain.Deduper
	batcher *EventBatcher
	node    *snowflake.Node
	horizon time.Duration
	maxBulk int
	now     func() time.Time
}

// NewIngestService starts the batcher. dedup and publisher may be nil.
func NewIngestService(store domain.ActivityStore, dedup domain.Deduper, publisher domain.Publisher, cfg *config.Config) (*IngestService, error) {
	if store == nil {
		return nil, fmt.Errorf("activity store cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	node, err := snowflake.NewNode(cfg.Ingest.NodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create id generator: %w", err)
	}

	batcher := NewEventBatcher(cfg.Ingest, store, publisher)
	batcher.Start()

	return &IngestService{
		store:   store,
		dedup:   dedup,
		batcher: batcher,
		node:    node,
		horizon: cfg.RetentionHorizon(),
		maxBulk: cfg.Ingest.MaxBulkEvents,
		now:     time.Now,
	}, nil
}

func (s *IngestService) finish(draft domain.Event) domain.Event {
	return domain.NewEvent(draft, s.node.Generate().Int64(), s.now(), s.horizon)
}

// Track enqueues a client-reported event. A repeated idempotency key is
// acknowledged without a second event.
func (s *IngestService) Track(ctx context.Context, draft domain.Event, idempotencyKey string) (*domain.TrackResponse, error) {
	event := s.finish(draft)
	if err := validations.ValidateEvent(&event); err != nil {
		metrics.EventsRejected.WithLabelValues(sourceTrack, "schema").Inc()
		return nil, err
	}

	claimed := false
	if s.dedup != nil && idempotencyKey != "" {
		ok, err := s.dedup.Claim(ctx, idempotencyKey)
		switch {
		case err != nil:
			// dedup is best effort; an unreachable Redis must not block tracking
			logging.Ctx(ctx).Warn().Err(err).Msg("Idempotency check failed")
		case !ok:
			metrics.EventsRejected.WithLabelValues(sourceTrack, "duplicate").Inc()
			return &domain.TrackResponse{
				Success:   true,
				Message:   "Activity already tracked",
				SessionID: event.SessionID,
			}, nil
		default:
			claimed = true
		}
	}

	if err := s.batcher.Enqueue(event); err != nil {
		metrics.EventsDropped.WithLabelValues(dropReason(err)).Inc()
		if claimed {
			if relErr := s.dedup.Release(context.WithoutCancel(ctx), idempotencyKey); relErr != nil {
				logging.Ctx(ctx).Warn().Err(relErr).Msg("Failed to release idempotency key")
			}
		}
		return nil, err
	}
	metrics.EventsAccepted.WithLabelValues(sourceTrack).Inc()

	return &domain.TrackResponse{
		Success:   true,
		Message:   "Activity tracked successfully",
		SessionID: event.SessionID,
	}, nil
}

// Record is the instrumentation path. Every failure is logged and counted.
func (s *IngestService) Record(ctx context.Context, draft domain.Event) {
	event := s.finish(draft)
	log := logging.Ctx(ctx)

	if err := validations.ValidateEvent(&event); err != nil {
		metrics.EventsRejected.WithLabelValues(sourceMiddleware, "schema").Inc()
		log.Warn().Err(err).Str("activity_type", string(event.ActivityType)).Msg("Dropped invalid tracked activity")
		return
	}
	if err := s.batcher.Enqueue(event); err != nil {
		metrics.EventsDropped.WithLabelValues(dropReason(err)).Inc()
		log.Warn().Err(err).Str("activity_type", string(event.ActivityType)).Msg("Dropped tracked activity")
		return
	}
	metrics.EventsAccepted.WithLabelValues(sourceMiddleware).Inc()
}

// TrackBulk validates each item on its own and writes the valid ones synchronously.
// Item failures are reported by index, never as an error.
func (s *IngestService) TrackBulk(ctx context.Context, req *domain.BulkTrackRequest) (*domain.BulkEventResponse, error) {
	if req == nil || len(req.Events) == 0 {
		return nil, &domain.SchemaViolation{Field: "events", Reason: "must be a non-empty array"}
	}
	if s.maxBulk > 0 && len(req.Events) > s.maxBulk {
		return nil, &domain.SchemaViolation{Field: "events", Reason: fmt.Sprintf("must contain at most %d events", s.maxBulk)}
	}

	log := logging.Ctx(ctx)
	total := len(req.Events)
	now := s.now()
	failures := make([]domain.BulkFailure, 0)
	events := make([]domain.Event, 0, total)
	positions := make([]int, 0, total)

	for i, raw := range req.Events {
		var item domain.BulkEvent
		if err := json.Unmarshal(raw, &item); err != nil {
			failures = append(failures, domain.BulkFailure{Index: i, Reason: "malformed event: " + err.Error()})
			continue
		}
		draft, err := validations.BuildBulkEvent(&item, now)
		if err != nil {
			failures = append(failures, bulkFailure(i, err))
			continue
		}
		events = append(events, s.finish(draft))
		positions = append(positions, i)
	}
	if rejected := len(failures); rejected > 0 {
		metrics.EventsRejected.WithLabelValues(sourceBulk, "schema").Add(float64(rejected))
		log.Warn().Int("rejected", rejected).Int("total", total).Msg("Bulk import contained invalid events")
	}

	failures = append(failures, s.insertBulk(ctx, events, positions)...)
	slices.SortFunc(failures, func(a, b domain.BulkFailure) int { return cmp.Compare(a.Index, b.Index) })
	success := total - len(failures)
	metrics.EventsAccepted.WithLabelValues(sourceBulk).Add(float64(success))
	metrics.EventsPersisted.Add(float64(success))

	return &domain.BulkEventResponse{
		Success:      true,
		Message:      fmt.Sprintf("%d of %d events stored", success, total),
		TotalCount:   total,
		SuccessCount: success,
		FailureCount: len(failures),
		Failures:     failures,
	}, nil
}

// insertBulk uses one unordered insert and falls back to row-by-row writes when the
// whole batch is refused, so a single poisoned row cannot sink its neighbours.
func (s *IngestService) insertBulk(ctx context.Context, events []domain.Event, positions []int) []domain.BulkFailure {
	if len(events) == 0 {
		return nil
	}
	log := logging.Ctx(ctx)

	_, err := s.store.InsertMany(ctx, events)
	if err == nil {
		return nil
	}

	var batchErr *domain.BatchError
	if errors.As(err, &batchErr) {
		failures := make([]domain.BulkFailure, 0, len(batchErr.Failed))
		for i, rowErr := range batchErr.Failed {
			failures = append(failures, domain.BulkFailure{Index: positions[i], Reason: rowErr.Error()})
		}
		log.Warn().Int("failed", len(failures)).Msg("Bulk insert partially failed")
		return failures
	}

	log.Warn().Err(err).Int("count", len(events)).Msg("Bulk insert failed, retrying events one by one")
	var failures []domain.BulkFailure
	for i := range events {
		if rowErr := s.store.InsertOne(ctx, events[i]); rowErr != nil {
			failures = append(failures, domain.BulkFailure{Index: positions[i], Reason: rowErr.Error()})
		}
	}
	if len(failures) > 0 {
		log.Error().Int("failed", len(failures)).Msg("Bulk events could not be stored")
	}
	return failures
}

func dropReason(err error) string {
	if errors.Is(err, ErrBufferFull) {
		return "buffer_full"
	}
	return "stopped"
}

func bulkFailure(index int, err error) domain.BulkFailure {
	var violation *domain.SchemaViolation
	if errors.As(err, &violation) {
		return domain.BulkFailure{Index: index, Field: violation.Field, Reason: violation.Reason}
	}
	return domain.BulkFailure{Index: index, Reason: err.Error()}
}

// Health reports the ingest backlog.
func (s *IngestService) Health() domain.IngestHealth {
	return domain.IngestHealth{
		Buffered:     s.batcher.GetBufferSize(),
		Pending:      s.batcher.GetBatchSize(),
		BreakerState: s.batcher.BreakerState(),
	}
}

// Shutdown gracefully shuts down the ingest service and its batcher
func (s *IngestService) Shutdown() error {
	if s.batcher != nil {
		return s.batcher.Shutdown()
	}
	return nil
}
