package domain

import "context"

// IngestService is the write side: validated drafts in, asynchronous persistence out.
type IngestService interface {
	// Track enqueues a client-reported event. idempotencyKey may be empty.
	Track(ctx context.Context, draft Event, idempotencyKey string) (*TrackResponse, error)
	// Record enqueues a middleware-observed event. Failures are logged, never returned.
	Record(ctx context.Context, draft Event)
	TrackBulk(ctx context.Context, req *BulkTrackRequest) (*BulkEventResponse, error)
}

// AnalyticsService is the read side. Failures surface as *QueryError.
type AnalyticsService interface {
	UserHistory(ctx context.Context, q HistoryQuery) (*HistoryResponse, error)
	Journey(ctx context.Context, sessionID string) (*JourneyResponse, error)
	ActivityStats(ctx context.Context, w Window) (*StatsResponse, error)
	PopularProducts(ctx context.Context, limit int) (*PopularProductsResponse, error)
	ErrorStats(ctx context.Context, w Window) (*ErrorStatsResponse, error)
	// OrderTimeline returns ErrForbidden unless actor owns the order or isAdmin is set.
	OrderTimeline(ctx context.Context, orderID, actor string, isAdmin bool) (*OrderTimelineResponse, error)
}

type RetentionService interface {
	// Cleanup deletes events older than days. days <= 0 applies the configured horizon.
	Cleanup(ctx context.Context, days int) (int64, error)
	Purge(ctx context.Context, filter PurgeFilter) (int64, error)
}

// ActivityStore is the storage engine contract. Events are insert-only.
type ActivityStore interface {
	InsertOne(ctx context.Context, e Event) error
	// InsertMany is unordered. It returns the number of rows written; a *BatchError
	// lists the rejected indexes while every other row is still attempted.
	InsertMany(ctx context.Context, events []Event) (int, error)
	Find(ctx context.Context, f EventFilter, opts FindOptions) ([]Event, error)
	Count(ctx context.Context, f EventFilter) (int64, error)
	// Delete refuses an empty filter with ErrEmptyFilter.
	Delete(ctx context.Context, f EventFilter) (int64, error)

	ActivityStats(ctx context.Context, w Window) ([]ActivityStat, error)
	PopularProducts(ctx context.Context, limit int) ([]PopularProduct, error)
	ErrorStats(ctx context.Context, w Window) ([]ErrorStat, error)

	Ping(ctx context.Context) error
	Close() error
}

// Deduper claims idempotency keys. Claim reports false when the key was seen before.
type Deduper interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Publisher mirrors persisted events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, events []Event) error
}

// EntityKind names a storefront entity an event may reference.
type EntityKind string

const (
	KindUser    EntityKind = "user"
	KindProduct EntityKind = "product"
	KindOrder   EntityKind = "order"
)

// Directory reads summaries of storefront entities owned by other subsystems.
// Missing ids are absent from the returned maps.
type Directory interface {
	Users(ctx context.Context, ids []string) (map[string]UserSummary, error)
	Products(ctx context.Context, ids []string) (map[string]ProductSummary, error)
	Orders(ctx context.Context, ids []string) (map[string]OrderSummary, error)
	// OwnerOf returns the owning user id, or ErrNotFound.
	OwnerOf(ctx context.Context, kind EntityKind, id string) (string, error)
}
