package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kucukaslan/activity/domain"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ev(id int64, typ domain.ActivityType, at time.Duration) domain.Event {
	return domain.Event{ID: id, ActivityType: typ, SessionID: "s1", Timestamp: t0.Add(at)}
}

func TestPopularProductsRanking(t *testing.T) {
	events := []domain.Event{
		ev(1, domain.ProductView, 0), ev(2, domain.ProductView, time.Second), ev(3, domain.ProductAddToCart, 2*time.Second),
		ev(4, domain.ProductView, 3*time.Second),
		ev(5, domain.PageView, 4*time.Second),
	}
	for i := 0; i < 3; i++ {
		events[i].ProductID = "A"
	}
	events[3].ProductID = "B"

	got := PopularProducts(events, 10)
	require.Len(t, got, 2)
	assert.Equal(t, domain.PopularProduct{ProductID: "A", ViewCount: 2, CartAddCount: 1, TotalInteractions: 3}, got[0])
	assert.Equal(t, "B", got[1].ProductID)
	assert.Equal(t, uint64(1), got[1].ViewCount)

	assert.Len(t, PopularProducts(events, 1), 1)
	assert.Empty(t, PopularProducts(nil, 10))
}

func TestErrorStatsGrouping(t *testing.T) {
	first := ev(1, domain.ErrorOccurred, 0)
	first.Error = &domain.ErrorDetail{Message: "timeout", Severity: "low"}
	second := ev(2, domain.ErrorOccurred, time.Minute)
	second.Error = &domain.ErrorDetail{Message: "timeout", Severity: "critical"}
	other := ev(3, domain.ErrorOccurred, 30*time.Second)
	other.Error = &domain.ErrorDetail{Message: "not found", Severity: "medium"}
	ignored := ev(4, domain.APIError, 0)
	ignored.Error = &domain.ErrorDetail{Message: "timeout"}

	// arrival order must not matter
	got := ErrorStats([]domain.Event{second, other, ignored, first})
	require.Len(t, got, 2)
	assert.Equal(t, "timeout", got[0].Message)
	assert.Equal(t, uint64(2), got[0].Count)
	assert.Equal(t, "critical", got[0].LastSeverity)
	assert.Equal(t, second.Timestamp, got[0].LastOccurrence)
	assert.Equal(t, "not found", got[1].Message)
}

func TestActivityStats(t *testing.T) {
	a := ev(1, domain.PageView, 0)
	a.UserID = "u1"
	b := ev(2, domain.PageView, time.Second)
	b.UserID = "u2"
	b.SessionID = "s2"
	c := ev(3, domain.PageView, 2*time.Second)
	d := ev(4, domain.ProductView, 3*time.Second)

	got := ActivityStats([]domain.Event{d, a, b, c})
	require.Len(t, got, 2)
	assert.Equal(t, domain.ActivityStat{ActivityType: domain.PageView, Count: 3, UniqueUsers: 2, UniqueSessions: 2}, got[0])
	assert.Equal(t, domain.ProductView, got[1].ActivityType)

	assert.NotNil(t, ActivityStats(nil))
	assert.Empty(t, ActivityStats(nil))
}

func TestSortUsesTimestampThenID(t *testing.T) {
	events := []domain.Event{ev(3, domain.PageView, time.Second), ev(2, domain.PageView, 0), ev(1, domain.PageView, time.Second)}

	Sort(events, domain.OldestFirst)
	assert.Equal(t, []int64{2, 1, 3}, ids(events))

	Sort(events, domain.NewestFirst)
	assert.Equal(t, []int64{3, 1, 2}, ids(events))
}

func TestPaginate(t *testing.T) {
	events := []domain.Event{ev(1, domain.PageView, 0), ev(2, domain.PageView, 0), ev(3, domain.PageView, 0)}
	assert.Equal(t, []int64{2, 3}, ids(Paginate(events, 1, 0)))
	assert.Equal(t, []int64{1, 2}, ids(Paginate(events, 0, 2)))
	assert.Empty(t, Paginate(events, 5, 2))

	assert.Equal(t, 50, ClampLimit(0, 50, 500))
	assert.Equal(t, 500, ClampLimit(9000, 50, 500))
	assert.Equal(t, 100, Offset(3, 50))
	assert.Equal(t, 0, Offset(0, 50))
}

func TestDuration(t *testing.T) {
	e := domain.Event{ActivityData: map[string]any{"startTime": 1000.0, "endTime": 4500.0}}
	d, ok := Duration(&e)
	require.True(t, ok)
	assert.Equal(t, 3500*time.Millisecond, d)

	_, ok = Duration(&domain.Event{ActivityData: map[string]any{"startTime": 1000.0}})
	assert.False(t, ok)
}

func ids(events []domain.Event) []int64 {
	out := make([]int64, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
