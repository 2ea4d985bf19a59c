package services

import (
	"context"
	"fmt"
	"time"

	"kucukaslan/activity/domain"
	"kucukaslan/activity/logging"
	"kucukaslan/activity/metrics"
)

var _ domain.RetentionService = &retentionService{}

type retentionService struct {
	store       domain.ActivityStore
	defaultDays int
	now         func() time.Time
}

// NewRetentionService deletes by age or by administrative filter. defaultDays
// applies when Cleanup is called without a horizon.
func NewRetentionService(store domain.ActivityStore, defaultDays int) (domain.RetentionService, error) {
	if store == nil {
		return nil, fmt.Errorf("activity store cannot be nil")
	}
	if defaultDays <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", defaultDays)
	}
	return &retentionService{store: store, defaultDays: defaultDays, now: time.Now}, nil
}

// Cleanup removes events whose timestamp is older than days. Running it twice
// with the same horizon removes nothing the second time.
func (s *retentionService) Cleanup(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = s.defaultDays
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)

	deleted, err := s.store.Delete(ctx, domain.EventFilter{Before: cutoff})
	if err != nil {
		return 0, fmt.Errorf("cleanup older than %d days: %w", days, err)
	}
	metrics.EventsDeleted.WithLabelValues("retention").Add(float64(deleted))
	logging.Ctx(ctx).Info().Int("days", days).Time("cutoff", cutoff).Int64("deleted", deleted).Msg("Retention cleanup finished")
	return deleted, nil
}

func (s *retentionService) Purge(ctx context.Context, filter domain.PurgeFilter) (int64, error) {
	f := filter.Filter()
	if f.IsEmpty() {
		return 0, &domain.SchemaViolation{Field: "filter", Reason: "at least one of userId, sessionId or before is required"}
	}
	deleted, err := s.store.Delete(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("purge activities: %w", err)
	}
	metrics.EventsDeleted.WithLabelValues("purge").Add(float64(deleted))
	logging.Ctx(ctx).Info().Str("user_id", filter.UserID).Str("session_id", filter.SessionID).
		Int64("deleted", deleted).Msg("Activities purged")
	return deleted, nil
}
