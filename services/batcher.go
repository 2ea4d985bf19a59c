package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"kucukaslan/activity/config"
	"kucukaslan/activity/domain"
	"kucukaslan/activity/logging"
	"kucukaslan/activity/metrics"
)

var (
	// ErrBufferFull is returned when the event buffer channel is full
	ErrBufferFull = errors.New("event buffer is full")
	// ErrBatcherStopped is returned once shutdown has begun
	ErrBatcherStopped = errors.New("event batcher is shutting down")
)

// EventBatcher batches events and flushes them to the activity store
type EventBatcher struct {
	eventChan     chan domain.Event
	batchSize     int
	flushInterval time.Duration
	flushTimeout  time.Duration
	retries       int
	retryDelay    time.Duration
	store         domain.ActivityStore
	publisher     domain.Publisher
	breaker       *gobreaker.CircuitBreaker[int]
	log           zerolog.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
	isRunning     bool
	// sendMu makes closing and sending exclusive, so nothing lands after the final drain
	sendMu        sync.RWMutex
	closed        bool
	currentBatch  []domain.Event
	lastFlushTime time.Time
}

// NewEventBatcher creates a new EventBatcher instance. publisher may be nil.
func NewEventBatcher(cfg config.IngestConfig, store domain.ActivityStore, publisher domain.Publisher) *EventBatcher {
	ctx, cancel := context.WithCancel(context.Background())
	b := &EventBatcher{
		eventChan:     make(chan domain.Event, cfg.BufferChannelCapacity),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval(),
		flushTimeout:  cfg.FlushTimeout,
		retries:       cfg.FlushRetries,
		retryDelay:    cfg.FlushRetryDelay,
		store:         store,
		publisher:     publisher,
		log:           logging.With("batcher"),
		ctx:           ctx,
		cancel:        cancel,
		currentBatch:  make([]domain.Event, 0, cfg.BatchSize),
		lastFlushTime: time.Now(),
	}
	if b.flushTimeout <= 0 {
		b.flushTimeout = 30 * time.Second
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	b.breaker = gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:    "activity-store",
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// rejected rows are the caller's fault, not the store's
		IsSuccessful: func(err error) bool {
			var batchErr *domain.BatchError
			return err == nil || errors.As(err, &batchErr)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.BreakerState.Set(float64(to))
			b.log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Store breaker changed state")
		},
	})
	return b
}

// Start launches the background worker goroutine that processes events
func (b *EventBatcher) Start() {
	b.mu.Lock()
	if b.isRunning {
		b.mu.Unlock()
		return
	}
	b.isRunning = true
	b.mu.Unlock()

	b.wg.Add(1)
	go b.worker()
	b.log.Info().Int("batch_size", b.batchSize).Dur("flush_interval", b.flushInterval).Msg("EventBatcher started")
}

// Enqueue adds an event to the buffer channel (non-blocking)
// Returns ErrBufferFull if the channel is full
func (b *EventBatcher) Enqueue(event domain.Event) error {
	b.sendMu.RLock()
	defer b.sendMu.RUnlock()
	if b.closed {
		return ErrBatcherStopped
	}
	select {
	case b.eventChan <- event:
		metrics.BufferDepth.Set(float64(len(b.eventChan)))
		return nil
	default:
		return ErrBufferFull
	}
}

// worker is the background goroutine that collects events and flushes them
func (b *EventBatcher) worker() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			// Flush remaining events before shutting down
			b.flushRemaining()
			return

		case event := <-b.eventChan:
			metrics.BufferDepth.Set(float64(len(b.eventChan)))
			b.mu.Lock()
			b.currentBatch = append(b.currentBatch, event)
			shouldFlush := len(b.currentBatch) >= b.batchSize
			b.mu.Unlock()

			if shouldFlush {
				b.flushBatch()
			}

		case <-ticker.C:
			// Time-based flush
			b.mu.Lock()
			hasEvents := len(b.currentBatch) > 0
			b.mu.Unlock()

			if hasEvents {
				b.flushBatch()
			}
		}
	}
}

// flushBatch flushes the current batch to the store
func (b *EventBatcher) flushBatch() {
	b.mu.Lock()
	if len(b.currentBatch) == 0 {
		b.mu.Unlock()
		return
	}

	// Copy batch and clear current batch
	batch := make([]domain.Event, len(b.currentBatch))
	copy(batch, b.currentBatch)
	b.currentBatch = b.currentBatch[:0]
	b.lastFlushTime = time.Now()
	b.mu.Unlock()

	start := time.Now()
	written, err := b.persist(batch)

	var batchErr *domain.BatchError
	switch {
	case err == nil:
		metrics.FlushDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
		b.log.Debug().Int("count", written).Msg("Flushed batch")
	case errors.As(err, &batchErr):
		metrics.FlushDuration.WithLabelValues("partial").Observe(time.Since(start).Seconds())
		metrics.EventsDropped.WithLabelValues("rejected").Add(float64(len(batchErr.Failed)))
		for i, rowErr := range batchErr.Failed {
			b.log.Warn().Err(rowErr).Int64("event_id", batch[i].ID).
				Str("activity_type", string(batch[i].ActivityType)).Msg("Store rejected event")
		}
	default:
		metrics.FlushDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		metrics.EventsDropped.WithLabelValues("persist").Add(float64(len(batch)))
		b.log.Error().Err(err).Int("count", len(batch)).Msg("Failed to flush batch, events dropped")
		return
	}
	metrics.EventsPersisted.Add(float64(written))

	if b.publisher != nil && written > 0 {
		b.publish(batch, batchErr)
	}
}

// persist writes through the breaker and retries a failed write a bounded
// number of times. Event ids are fixed before enqueue, so a retry after a
// timed-out but applied write is collapsed by the store.
func (b *EventBatcher) persist(batch []domain.Event) (int, error) {
	var (
		written int
		err     error
	)
	for attempt := 0; attempt <= b.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(b.retryDelay)
		}
		ctx, cancel := context.WithTimeout(context.Background(), b.flushTimeout)
		written, err = b.breaker.Execute(func() (int, error) {
			return b.store.InsertMany(ctx, batch)
		})
		cancel()

		var batchErr *domain.BatchError
		if err == nil || errors.As(err, &batchErr) || errors.Is(err, gobreaker.ErrOpenState) {
			return written, err
		}
		b.log.Warn().Err(err).Int("attempt", attempt+1).Int("count", len(batch)).Msg("Batch flush failed")
	}
	return written, err
}

func (b *EventBatcher) publish(batch []domain.Event, batchErr *domain.BatchError) {
	events := batch
	if batchErr != nil {
		events = make([]domain.Event, 0, len(batch)-len(batchErr.Failed))
		for i := range batch {
			if _, failed := batchErr.Failed[i]; !failed {
				events = append(events, batch[i])
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.flushTimeout)
	defer cancel()
	if err := b.publisher.Publish(ctx, events); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Add(float64(len(events)))
		b.log.Warn().Err(err).Int("count", len(events)).Msg("Failed to mirror events to broker")
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Add(float64(len(events)))
}

// flushRemaining flushes any remaining events in the buffer during shutdown
func (b *EventBatcher) flushRemaining() {
	b.mu.Lock()
	remaining := len(b.currentBatch)
	b.mu.Unlock()

	if remaining > 0 {
		b.log.Info().Int("count", remaining).Msg("Flushing remaining events during shutdown")
		b.flushBatch()
	}

	// Drain any remaining events from the channel
	drained := 0
	for {
		select {
		case event := <-b.eventChan:
			b.mu.Lock()
			b.currentBatch = append(b.currentBatch, event)
			full := len(b.currentBatch) >= b.batchSize
			b.mu.Unlock()
			drained++
			if full {
				b.flushBatch()
			}
		default:
			if drained > 0 {
				b.log.Info().Int("count", drained).Msg("Drained events from channel during shutdown")
				b.flushBatch()
			}
			metrics.BufferDepth.Set(0)
			return
		}
	}
}

// Shutdown gracefully shuts down the batcher, flushing remaining events
func (b *EventBatcher) Shutdown() error {
	b.mu.Lock()
	if !b.isRunning {
		b.mu.Unlock()
		return nil
	}
	b.isRunning = false
	b.mu.Unlock()

	b.sendMu.Lock()
	b.closed = true
	b.sendMu.Unlock()

	b.log.Info().Msg("EventBatcher: Initiating graceful shutdown...")
	b.cancel()
	b.wg.Wait()
	b.log.Info().Msg("EventBatcher: Shutdown complete")
	return nil
}

// GetBufferSize returns the current number of events in the buffer channel
func (b *EventBatcher) GetBufferSize() int {
	return len(b.eventChan)
}

// GetBatchSize returns the current number of events in the pending batch
func (b *EventBatcher) GetBatchSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.currentBatch)
}

// BreakerState reports the store breaker as closed, half-open or open.
func (b *EventBatcher) BreakerState() string {
	return b.breaker.State().String()
}
