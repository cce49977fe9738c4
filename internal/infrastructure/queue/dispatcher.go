package queue

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/marketplace/internal/api/metrics"
	"github.com/99minutos/marketplace/internal/core/domain"
	"github.com/99minutos/marketplace/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
	appendTimeout  = 10 * time.Second

	baseRetryDelay = 250 * time.Millisecond
	maxRetryDelay  = 30 * time.Second
)

// ErrEventsAbandoned is returned by Shutdown when its deadline passed before
// every recorded event reached the journal.
var ErrEventsAbandoned = errors.New("change events not journaled before shutdown")

// Dispatcher persists change events to the journal and publishes them to the
// live feed. Events are routed to a fixed set of workers by hashing the
// principal they concern, so the events of one store owner are handled in
// the order the ledger produced them.
//
// A worker retries a failed append until it succeeds and never moves on to
// the next event of its shard before that, so the journal has no holes for
// Replay to trip over. Only Shutdown's deadline or the Start context stops
// the retries.
//
// Dispatcher implements ports.ChangeLog.
type Dispatcher struct {
	workers   []chan domain.ChangeEvent
	journal   ports.JournalRepository
	publisher ports.EventPublisher
	log       zerolog.Logger

	// retryDelay returns the wait before the given retry (1-based).
	retryDelay func(attempt int) time.Duration

	// mu orders Record's channel sends against Close closing the channels.
	mu     sync.RWMutex
	closed bool

	abort     chan struct{}
	abortOnce sync.Once
	stalled   atomic.Int32
	abandoned atomic.Int64

	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ ports.ChangeLog = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used. publisher may be nil.
func NewDispatcher(numWorkers int, journal ports.JournalRepository, publisher ports.EventPublisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:    make([]chan domain.ChangeEvent, numWorkers),
		journal:    journal,
		publisher:  publisher,
		log:        log,
		retryDelay: backoffDuration,
		abort:      make(chan struct{}),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.ChangeEvent, channelBuffer)
	}
	return d
}

// backoffDuration doubles from baseRetryDelay up to maxRetryDelay.
func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 10 {
		return maxRetryDelay
	}
	delay := baseRetryDelay << (attempt - 1)
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled
// or once Close has drained their channel.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Record hands ev to the worker responsible for it. It blocks only when that
// worker's buffer is full. Once the dispatcher is closed, ev is appended
// synchronously instead.
func (d *Dispatcher) Record(ev domain.ChangeEvent) {
	metrics.LedgerHeight.Set(float64(ev.Seq))

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		d.log.Warn().Uint64("seq", ev.Seq).Str("kind", string(ev.Kind)).
			Msg("change event recorded after close, appending inline")
		d.handle(context.Background(), -1, ev)
		return
	}
	idx := d.shardIndex(shardKey(ev))
	d.workers[idx] <- ev
	d.mu.RUnlock()

	metrics.JournalQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// Close stops accepting events and waits until every queued event has been
// journaled, however long that takes.
func (d *Dispatcher) Close() {
	_ = d.Shutdown(context.Background())
}

// Shutdown stops accepting events and waits for the workers to drain. When
// ctx ends first, pending retries are given up and ErrEventsAbandoned is
// returned; the abandoned events are logged so they can be re-journaled.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			d.abortOnce.Do(func() { close(d.abort) })
		case <-stop:
		}
	}()

	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
		d.mu.Unlock()
	})
	d.wg.Wait()

	if n := d.abandoned.Load(); n > 0 {
		return fmt.Errorf("%w: %d", ErrEventsAbandoned, n)
	}
	return nil
}

// Healthy reports an error while any worker is stuck retrying an append.
func (d *Dispatcher) Healthy(context.Context) error {
	if n := d.stalled.Load(); n > 0 {
		return fmt.Errorf("%d journal workers retrying a failed append", n)
	}
	return nil
}

// shardKey picks the principal an event is ordered by: its store owner, or
// the admin for admin role changes.
func shardKey(ev domain.ChangeEvent) domain.Principal {
	if ev.StoreOwner != domain.ZeroPrincipal {
		return ev.StoreOwner
	}
	return ev.Admin
}

// shardIndex maps a principal deterministically to a worker index.
func (d *Dispatcher) shardIndex(p domain.Principal) int {
	h := fnv.New32a()
	_, _ = h.Write(p.Bytes())
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.ChangeEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	// Once an event of this shard is abandoned, later ones are too.
	abandoning := false
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			metrics.JournalQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if abandoning {
				d.giveUp(id, ev, errors.New("an earlier event of this shard was abandoned"))
				continue
			}
			abandoning = !d.handle(ctx, id, ev)
		}
	}
}

// handle journals ev, then publishes it. It reports whether ev was journaled.
func (d *Dispatcher) handle(ctx context.Context, workerID int, ev domain.ChangeEvent) bool {
	start := time.Now()
	kind := string(ev.Kind)

	if !d.appendWithRetry(ctx, workerID, ev) {
		return false
	}
	metrics.JournalEventsTotal.WithLabelValues(kind).Inc()
	metrics.JournalAppendDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if d.publisher == nil {
		return true
	}
	pubCtx, cancel := context.WithTimeout(ctx, appendTimeout)
	defer cancel()
	if err := d.publisher.Publish(pubCtx, ev); err != nil {
		metrics.JournalErrorsTotal.WithLabelValues("publish").Inc()
		d.log.Warn().Err(err).
			Uint64("seq", ev.Seq).
			Str("kind", kind).
			Int("worker_id", workerID).
			Msg("change event publish failed")
	}
	return true
}

// appendWithRetry blocks until ev is journaled. It returns false only when
// ctx ends or Shutdown gives up first.
func (d *Dispatcher) appendWithRetry(ctx context.Context, workerID int, ev domain.ChangeEvent) bool {
	for attempt := 1; ; attempt++ {
		appendCtx, cancel := context.WithTimeout(ctx, appendTimeout)
		err := d.journal.Append(appendCtx, ev)
		cancel()
		if err == nil {
			if attempt > 1 {
				d.stalled.Add(-1)
				d.log.Info().Uint64("seq", ev.Seq).Int("attempts", attempt).
					Int("worker_id", workerID).Msg("journal append recovered")
			}
			return true
		}
		if attempt == 1 {
			d.stalled.Add(1)
		}

		delay := d.retryDelay(attempt)
		metrics.JournalErrorsTotal.WithLabelValues("append").Inc()
		d.log.Error().Err(err).
			Uint64("seq", ev.Seq).
			Str("kind", string(ev.Kind)).
			Int("worker_id", workerID).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("journal append failed")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			d.stalled.Add(-1)
			d.giveUp(workerID, ev, ctx.Err())
			return false
		case <-d.abort:
			timer.Stop()
			d.stalled.Add(-1)
			d.giveUp(workerID, ev, errors.New("shutdown deadline exceeded"))
			return false
		}
	}
}

func (d *Dispatcher) giveUp(workerID int, ev domain.ChangeEvent, reason error) {
	d.abandoned.Add(1)
	metrics.JournalErrorsTotal.WithLabelValues("abandoned").Inc()
	d.log.Error().Err(reason).
		Int("worker_id", workerID).
		Interface("event", ev).
		Msg("change event abandoned before reaching the journal")
}
