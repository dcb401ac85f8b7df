package mgm

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/mostlygoodmetrics/mgm-go/adapters"
)

// defaultRateLimitBackoff applies when a 429 carries no Retry-After hint.
const defaultRateLimitBackoff = 60 * time.Second

type dispatcherConfig struct {
	Endpoint      string
	FlushInterval time.Duration
	MaxBatchSize  int
}

// dispatcher drains the event store in batches and delivers them. Events
// are removed only on confirmed success; every other outcome retains them
// for the next cycle, giving at-least-once delivery with server-side dedup
// by client event id.
type dispatcher struct {
	config  dispatcherConfig
	store   adapters.EventStore
	network adapters.NetworkAdapter
	logger  adapters.LoggerAdapter
	headers map[string]string

	// contextFn snapshots the batch context at send time.
	contextFn func() adapters.BatchContext

	// inFlight makes Flush single-flight: a trigger while a flush is in
	// progress is a no-op.
	inFlight atomic.Bool

	retryMu        sync.Mutex
	retryNotBefore time.Time

	timerMu   sync.Mutex
	timerQuit chan struct{}
	wg        sync.WaitGroup
}

func newDispatcher(
	config dispatcherConfig,
	store adapters.EventStore,
	network adapters.NetworkAdapter,
	logger adapters.LoggerAdapter,
	headers map[string]string,
	contextFn func() adapters.BatchContext,
) *dispatcher {
	return &dispatcher{
		config:    config,
		store:     store,
		network:   network,
		logger:    logger,
		headers:   headers,
		contextFn: contextFn,
	}
}

// enqueue stores one event and triggers an async flush when the queue has
// reached a full batch.
func (d *dispatcher) enqueue(event adapters.Event) error {
	if err := d.store.Store(event); err != nil {
		return err
	}
	count, err := d.store.Count()
	if err != nil {
		d.logger.Warn("failed to count pending events: %v", err)
		return nil
	}
	if count >= d.config.MaxBatchSize {
		go d.Flush()
	}
	return nil
}

// startTimer begins periodic flushing. No-op while a timer is running.
func (d *dispatcher) startTimer() {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()

	if d.timerQuit != nil {
		return
	}
	quit := make(chan struct{})
	d.timerQuit = quit

	ticker := time.NewTicker(d.config.FlushInterval)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.Flush()
			case <-quit:
				return
			}
		}
	}()
}

// stopTimer halts periodic flushing, e.g. while the app is backgrounded.
func (d *dispatcher) stopTimer() {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()

	if d.timerQuit == nil {
		return
	}
	close(d.timerQuit)
	d.timerQuit = nil
}

// stop tears the dispatcher down with a final best-effort flush.
func (d *dispatcher) stop() {
	d.stopTimer()
	d.wg.Wait()
	d.Flush()
}

// Flush runs one delivery cycle. Concurrent triggers (timer tick racing a
// manual call or a background-transition flush) coalesce into a no-op.
func (d *dispatcher) Flush() {
	if !d.inFlight.CompareAndSwap(false, true) {
		d.logger.Debug("flush already in progress, skipping")
		return
	}
	defer d.inFlight.Store(false)
	d.flushOnce()
}

func (d *dispatcher) flushOnce() {
	if wait := d.backoffRemaining(time.Now()); wait > 0 {
		d.logger.Debug("rate limited, skipping flush for %v", wait)
		return
	}

	batch, err := d.store.Fetch(d.config.MaxBatchSize)
	if err != nil {
		d.logger.Error("failed to fetch pending events: %v", err)
		return
	}
	if len(batch) == 0 {
		return
	}

	d.logger.Debug("sending batch of %d events", len(batch))
	resp, err := d.network.SendEvents(d.config.Endpoint, adapters.EventBatch{
		Events:  batch,
		Context: d.contextFn(),
	}, d.headers)
	if err != nil {
		// Transient network failure: events stay queued for the next cycle.
		d.logger.Warn("delivery failed, retaining %d events: %v", len(batch), err)
		return
	}

	switch {
	case resp.OK():
		if err := d.store.Remove(len(batch)); err != nil {
			d.logger.Error("failed to remove %d delivered events: %v", len(batch), err)
			return
		}
		d.logger.Debug("delivered batch of %d events", len(batch))
	case resp.RateLimited():
		backoff := resp.RetryAfter
		if backoff <= 0 {
			backoff = defaultRateLimitBackoff
		}
		d.setBackoff(backoff)
		d.logger.Warn("rate limited, retrying after %v", backoff)
	default:
		d.logger.Warn("delivery rejected with status %d, retaining %d events", resp.Status, len(batch))
	}
}

func (d *dispatcher) backoffRemaining(now time.Time) time.Duration {
	d.retryMu.Lock()
	defer d.retryMu.Unlock()
	if d.retryNotBefore.After(now) {
		return d.retryNotBefore.Sub(now)
	}
	return 0
}

func (d *dispatcher) setBackoff(backoff time.Duration) {
	d.retryMu.Lock()
	defer d.retryMu.Unlock()
	d.retryNotBefore = time.Now().Add(backoff)
}
