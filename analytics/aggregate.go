// Package analytics holds the pure aggregations behind the reporting endpoints.
// Stores that cannot push them down to SQL run them over the matching events.
package analytics

import (
	"cmp"
	"slices"
	"time"

	"kucukaslan/activity/domain"
)

// Less orders events by timestamp, ties broken by id.
func Less(a, b *domain.Event) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}

// Sort orders events in place. Arrival order never matters, only timestamp and id.
func Sort(events []domain.Event, order domain.SortOrder) {
	slices.SortStableFunc(events, func(a, b domain.Event) int {
		c := compare(&a, &b)
		if order == domain.NewestFirst {
			return -c
		}
		return c
	})
}

func compare(a, b *domain.Event) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Paginate applies offset and limit. A zero limit keeps everything after offset.
func Paginate(events []domain.Event, offset, limit int) []domain.Event {
	if offset >= len(events) {
		return []domain.Event{}
	}
	events = events[max(offset, 0):]
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	return events
}

// ClampLimit replaces non-positive values with def and caps at upper.
func ClampLimit(limit, def, upper int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, upper)
}

// Offset converts a 1-based page number to a row offset.
func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

// ActivityStats counts events, distinct users and distinct sessions per type,
// ordered by count descending. Anonymous events do not count as users.
func ActivityStats(events []domain.Event) []domain.ActivityStat {
	type acc struct {
		count    uint64
		users    map[string]struct{}
		sessions map[string]struct{}
	}
	byType := map[domain.ActivityType]*acc{}
	for i := range events {
		e := &events[i]
		a, ok := byType[e.ActivityType]
		if !ok {
			a = &acc{users: map[string]struct{}{}, sessions: map[string]struct{}{}}
			byType[e.ActivityType] = a
		}
		a.count++
		if e.UserID != "" {
			a.users[e.UserID] = struct{}{}
		}
		a.sessions[e.SessionID] = struct{}{}
	}

	out := make([]domain.ActivityStat, 0, len(byType))
	for t, a := range byType {
		out = append(out, domain.ActivityStat{
			ActivityType:   t,
			Count:          a.count,
			UniqueUsers:    uint64(len(a.users)),
			UniqueSessions: uint64(len(a.sessions)),
		})
	}
	slices.SortFunc(out, func(a, b domain.ActivityStat) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.ActivityType, b.ActivityType)
	})
	return out
}

// PopularProducts ranks products by the number of events referencing them,
// breaking out views, cart adds and wishlist adds. limit caps the result.
func PopularProducts(events []domain.Event, limit int) []domain.PopularProduct {
	byProduct := map[string]*domain.PopularProduct{}
	for i := range events {
		e := &events[i]
		if e.ProductID == "" {
			continue
		}
		p, ok := byProduct[e.ProductID]
		if !ok {
			p = &domain.PopularProduct{ProductID: e.ProductID}
			byProduct[e.ProductID] = p
		}
		switch e.ActivityType {
		case domain.ProductView:
			p.ViewCount++
		case domain.ProductAddToCart:
			p.CartAddCount++
		case domain.ProductAddToWishlist:
			p.WishlistCount++
		}
		p.TotalInteractions++
	}

	out := make([]domain.PopularProduct, 0, len(byProduct))
	for _, p := range byProduct {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b domain.PopularProduct) int {
		if c := cmp.Compare(b.TotalInteractions, a.TotalInteractions); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ErrorStats groups error_occurred events by message with the severity and time
// of the most recent occurrence, ordered by count descending.
func ErrorStats(events []domain.Event) []domain.ErrorStat {
	type acc struct {
		stat domain.ErrorStat
		last *domain.Event
	}
	byMessage := map[string]*acc{}
	for i := range events {
		e := &events[i]
		if e.ActivityType != domain.ErrorOccurred {
			continue
		}
		var msg, severity string
		if e.Error != nil {
			msg, severity = e.Error.Message, e.Error.Severity
		}
		a, ok := byMessage[msg]
		if !ok {
			a = &acc{stat: domain.ErrorStat{Message: msg}}
			byMessage[msg] = a
		}
		a.stat.Count++
		if a.last == nil || Less(a.last, e) {
			a.last = e
			a.stat.LastSeverity = severity
			a.stat.LastOccurrence = e.Timestamp
		}
	}

	out := make([]domain.ErrorStat, 0, len(byMessage))
	for _, a := range byMessage {
		out = append(out, a.stat)
	}
	slices.SortFunc(out, func(a, b domain.ErrorStat) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Message, b.Message)
	})
	return out
}

// Duration reads activityData.startTime and endTime (epoch milliseconds) when a
// client reported both.
func Duration(e *domain.Event) (time.Duration, bool) {
	start, ok1 := number(e.ActivityData["startTime"])
	end, ok2 := number(e.ActivityData["endTime"])
	if !ok1 || !ok2 || end < start {
		return 0, false
	}
	return time.Duration((end - start) * float64(time.Millisecond)), true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
