package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"craftcloud/internal/domain"
)

var (
	ErrAlreadyRunning = errors.New("heartbeat already running")
	ErrClosed         = errors.New("heartbeat closed")
)

// Refresher produces one snapshot per call. *Orchestrator satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) domain.Snapshot
}

// Ticker delivers periodic ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

func newStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

type HeartbeatConfig struct {
	Refresher Refresher
	// Sink receives every snapshot that is not older than the last one
	// delivered. Calls are serialized.
	Sink func(domain.Snapshot)
	// Context is passed to every refresh. Defaults to context.Background.
	Context context.Context
	Logger  *slog.Logger
	// NewTicker overrides the tick source, for tests.
	NewTicker func(time.Duration) Ticker
}

// Heartbeat refreshes on start and then on every tick. Ticks do not wait
// for earlier refreshes, so cycles may overlap; snapshots that arrive
// after a newer one was delivered are dropped.
type Heartbeat struct {
	refresher Refresher
	sink      func(domain.Snapshot)
	ctx       context.Context
	logger    *slog.Logger
	newTicker func(time.Duration) Ticker

	mu     sync.Mutex
	stop   chan struct{}
	done   chan struct{}
	closed bool

	deliverMu sync.Mutex
	lastSeq   uint64

	inflight sync.WaitGroup
}

func NewHeartbeat(config HeartbeatConfig) *Heartbeat {
	h := &Heartbeat{
		refresher: config.Refresher,
		sink:      config.Sink,
		ctx:       config.Context,
		logger:    config.Logger,
		newTicker: config.NewTicker,
	}
	if h.ctx == nil {
		h.ctx = context.Background()
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.newTicker == nil {
		h.newTicker = newStdTicker
	}
	if h.sink == nil {
		h.sink = func(domain.Snapshot) {}
	}
	return h
}

// Start refreshes once immediately and then every interval until Stop.
func (h *Heartbeat) Start(interval time.Duration) error {
	if interval <= 0 {
		return errors.New("heartbeat interval must be positive")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if h.stop != nil {
		return ErrAlreadyRunning
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	h.stop, h.done = stop, done

	ticker := h.newTicker(interval)
	h.logger.Debug("heartbeat started", "interval", interval)
	h.fireLocked()
	go h.loop(ticker, stop, done)
	return nil
}

func (h *Heartbeat) loop(ticker Ticker, stop, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			select {
			case <-stop:
				return
			default:
			}
			h.fire()
		}
	}
}

// Stop cancels future ticks. Once it returns no new tick refresh starts;
// refreshes already in flight still deliver.
func (h *Heartbeat) Stop() {
	h.mu.Lock()
	stop, done := h.stop, h.done
	h.stop, h.done = nil, nil
	h.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	h.logger.Debug("heartbeat stopped")
}

// Close stops the heartbeat for good. Afterwards Start fails, RefreshNow
// does nothing, and Wait may be called while other goroutines still
// hold the heartbeat.
func (h *Heartbeat) Close() {
	h.Stop()
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
}

func (h *Heartbeat) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stop != nil
}

// RefreshNow starts an out-of-band refresh delivered to the same sink.
// It works whether or not the heartbeat is running, until Close.
func (h *Heartbeat) RefreshNow() {
	h.fire()
}

// Wait blocks until every refresh started so far has delivered.
func (h *Heartbeat) Wait() {
	h.inflight.Wait()
}

func (h *Heartbeat) fire() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fireLocked()
}

// fireLocked starts one refresh. h.mu must be held, so no refresh is
// added once Close has returned.
func (h *Heartbeat) fireLocked() {
	if h.closed {
		return
	}
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		h.deliver(h.refresher.Refresh(h.ctx))
	}()
}

func (h *Heartbeat) deliver(snapshot domain.Snapshot) {
	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()
	if snapshot.Seq != 0 && snapshot.Seq < h.lastSeq {
		h.logger.Debug("dropped stale snapshot", "seq", snapshot.Seq, "last", h.lastSeq)
		return
	}
	if snapshot.Seq > h.lastSeq {
		h.lastSeq = snapshot.Seq
	}
	h.sink(snapshot)
}
