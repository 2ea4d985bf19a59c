package database

import (
	"context"
	"fmt"
	"sync"

	"kucukaslan/activity/analytics"
	"kucukaslan/activity/domain"
)

var _ domain.ActivityStore = &MemoryStore{}

// MemoryStore keeps events in process. It backs the memory store driver used in
// development and tests. Writing an id twice keeps one row, like the
// ReplacingMergeTree table read with FINAL.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[int64]domain.Event
	closed bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: map[int64]domain.Event{}}
}

func checkRow(e *domain.Event) error {
	switch {
	case e.ID == 0:
		return fmt.Errorf("%w: event has no id", domain.ErrPersistence)
	case !e.ActivityType.Valid():
		return fmt.Errorf("%w: unknown activity type %q", domain.ErrPersistence, e.ActivityType)
	case e.SessionID == "" || e.IPAddress == "" || e.UserAgent == "" || e.Timestamp.IsZero():
		return fmt.Errorf("%w: event %d misses a required column", domain.ErrPersistence, e.ID)
	}
	return nil
}

func (m *MemoryStore) InsertOne(ctx context.Context, e domain.Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if err := checkRow(&e); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("%w: store closed", domain.ErrPersistence)
	}
	m.events[e.ID] = e
	return nil
}

func (m *MemoryStore) InsertMany(ctx context.Context, events []domain.Event) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, fmt.Errorf("%w: store closed", domain.ErrPersistence)
	}

	failed := map[int]error{}
	written := 0
	for i := range events {
		if err := checkRow(&events[i]); err != nil {
			failed[i] = err
			continue
		}
		m.events[events[i].ID] = events[i]
		written++
	}
	if len(failed) > 0 {
		return written, &domain.BatchError{Failed: failed}
	}
	return written, nil
}

func (m *MemoryStore) match(f domain.EventFilter) []domain.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Event, 0)
	for _, e := range m.events {
		if f.Matches(&e) {
			out = append(out, e)
		}
	}
	return out
}

func (m *MemoryStore) Find(ctx context.Context, f domain.EventFilter, opts domain.FindOptions) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	events := m.match(f)
	analytics.Sort(events, opts.Sort)
	return analytics.Paginate(events, opts.Offset, opts.Limit), nil
}

func (m *MemoryStore) Count(ctx context.Context, f domain.EventFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(m.match(f))), nil
}

func (m *MemoryStore) Delete(ctx context.Context, f domain.EventFilter) (int64, error) {
	if f.IsEmpty() {
		return 0, domain.ErrEmptyFilter
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, e := range m.events {
		if f.Matches(&e) {
			delete(m.events, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryStore) ActivityStats(ctx context.Context, w domain.Window) ([]domain.ActivityStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return analytics.ActivityStats(m.match(w.Filter())), nil
}

func (m *MemoryStore) PopularProducts(ctx context.Context, limit int) ([]domain.PopularProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return analytics.PopularProducts(m.match(domain.EventFilter{}), limit), nil
}

func (m *MemoryStore) ErrorStats(ctx context.Context, w domain.Window) ([]domain.ErrorStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := w.Filter()
	f.ActivityType = domain.ErrorOccurred
	return analytics.ErrorStats(m.match(f)), nil
}

func (m *MemoryStore) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("memory store closed")
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored events.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}
