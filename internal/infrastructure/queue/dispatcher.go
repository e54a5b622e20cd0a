package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/fitlog/fitness-api/internal/core/domain"
	"github.com/fitlog/fitness-api/internal/core/ports"
	"github.com/fitlog/fitness-api/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	drainTimeout   = 5 * time.Second
)

// Dispatcher routes login events to a fixed set of workers using consistent
// hashing on the login key, so events for one account are stored in order.
// Recording never blocks the request path: a full worker drops the event.
//
// Every event Record accepts is processed: stopping flips stopped under mu
// before any worker starts draining, and Record enqueues under the read lock.
type Dispatcher struct {
	workers []chan domain.LoginEvent
	service ports.LoginHistoryService
	log     zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	quit    chan struct{}
	dropped atomic.Int64

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.LoginHistoryService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.LoginEvent, numWorkers),
		service: service,
		log:     log,
		quit:    make(chan struct{}),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.LoginEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers drain what is buffered and
// stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		<-ctx.Done()
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()
		close(d.quit)
	}()
}

// Wait blocks until every worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Record hands an event to the worker responsible for its login key.
func (d *Dispatcher) Record(event domain.LoginEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.drop()
		return
	}

	idx := d.shardIndex(shardKey(event))
	select {
	case d.workers[idx] <- event:
		metrics.LoginEventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		d.drop()
		d.log.Warn().
			Int("worker_id", idx).
			Str("method", event.Method).
			Msg("login event queue full, event dropped")
	}
}

func (d *Dispatcher) drop() {
	d.dropped.Add(1)
	metrics.LoginEventsDroppedTotal.Inc()
}

func shardKey(event domain.LoginEvent) string {
	if event.UserID != "" {
		return event.UserID
	}
	return event.Email
}

// shardIndex maps a login key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch chan domain.LoginEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)

	for {
		select {
		case <-d.quit:
			d.drain(id, ch)
			return
		case event := <-ch:
			d.process(ctx, id, event)
			metrics.LoginEventsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
		}
	}
}

func (d *Dispatcher) drain(id int, ch chan domain.LoginEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case event := <-ch:
			d.process(ctx, id, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, id int, event domain.LoginEvent) {
	start := time.Now()
	result := "ok"
	if err := d.service.Process(ctx, event); err != nil {
		result = "error"
		d.log.Error().Err(err).
			Str("method", event.Method).
			Str("outcome", event.Outcome).
			Int("worker_id", id).
			Msg("login event processing failed")
	}
	metrics.LoginEventProcessingDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}
