// Package tracking instruments fiber routes so each request yields exactly one
// activity event, stamped with the server-measured response time.
package tracking

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"

	"kucukaslan/activity/domain"
)

// Recorder accepts finalized drafts. Implementations must not block.
type Recorder interface {
	Record(ctx context.Context, draft domain.Event)
}

const localsKey = "activity.tracker"

// Tracker is the per-request tracking context. Handlers reach it with FromCtx.
type Tracker struct {
	mu        sync.Mutex
	event     domain.Event
	start     time.Time
	statusSet bool
	done      atomic.Bool
	recorder  Recorder
	ctx       context.Context
	since     func(time.Time) time.Duration
}

func newTracker(ctx context.Context, recorder Recorder, draft domain.Event, start time.Time) *Tracker {
	return &Tracker{
		event:    draft,
		start:    start,
		recorder: recorder,
		ctx:      ctx,
		since:    time.Since,
	}
}

// FromCtx returns the tracker of the current request, or nil on untracked routes.
func FromCtx(c *fiber.Ctx) *Tracker {
	t, _ := c.Locals(localsKey).(*Tracker)
	return t
}

// SetProductID references a product by id.
func (t *Tracker) SetProductID(id string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done.Load() {
		return
	}
	t.event.ProductID = id
}

// SetOrderID references an order by id.
func (t *Tracker) SetOrderID(id string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done.Load() {
		return
	}
	t.event.OrderID = id
}

// SetPageTitle sets page.title.
func (t *Tracker) SetPageTitle(title string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done.Load() {
		return
	}
	t.event.Page.Title = title
}

// SetError attaches a failure. Unless a status was set explicitly the event becomes failed.
func (t *Tracker) SetError(detail domain.ErrorDetail) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done.Load() {
		return
	}
	t.event.Error = &detail
	if !t.statusSet {
		t.event.Status = domain.StatusFailed
	}
}

func (t *Tracker) SetStatus(s domain.Status) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done.Load() {
		return
	}
	t.event.Status = s
	t.statusSet = true
}

// Put adds a key to activityData. Setters are no-ops once the tracker is done.
func (t *Tracker) Put(key string, value any) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done.Load() {
		return
	}
	if t.event.ActivityData == nil {
		t.event.ActivityData = map[string]any{}
	}
	t.event.ActivityData[key] = value
}

// SessionID returns the session the event is attributed to.
func (t *Tracker) SessionID() string {
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.event.SessionID
}

// Finalize measures the response time and hands the event to the recorder.
// Only the first call of Finalize or Abort has an effect; it reports whether this
// call emitted the event.
func (t *Tracker) Finalize() bool {
	if t == nil || !t.done.CompareAndSwap(false, true) {
		return false
	}

	t.mu.Lock()
	elapsed := float64(t.since(t.start)) / float64(time.Millisecond)
	if elapsed < 0 {
		elapsed = 0
	}
	t.event.Performance.APIResponseTime = &elapsed
	draft := cloneEvent(t.event)
	t.mu.Unlock()

	t.recorder.Record(t.ctx, draft)
	return true
}

// cloneEvent copies every map, slice and pointer of e, so the recorded event
// shares nothing with the tracker.
func cloneEvent(e domain.Event) domain.Event {
	e.ActivityData = cloneMap(e.ActivityData)
	e.Location = cloneMap(e.Location)
	e.Metadata = cloneMap(e.Metadata)
	if e.Error != nil {
		detail := *e.Error
		e.Error = &detail
	}
	if p := e.Performance.PageLoadTime; p != nil {
		v := *p
		e.Performance.PageLoadTime = &v
	}
	if p := e.Performance.APIResponseTime; p != nil {
		v := *p
		e.Performance.APIResponseTime = &v
	}
	return e
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	default:
		return v
	}
}

// Abort discards the event. A request that never completes produces nothing.
func (t *Tracker) Abort() {
	if t != nil {
		t.done.Store(true)
	}
}

// Done reports whether the tracker was finalized or aborted.
func (t *Tracker) Done() bool {
	return t != nil && t.done.Load()
}
