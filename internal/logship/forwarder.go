package logship

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"k8s.io/utils/clock"

	"github.com/G-Research/logship/internal/common/logctx"
	"github.com/G-Research/logship/internal/logship/batch"
	"github.com/G-Research/logship/internal/logship/configuration"
	"github.com/G-Research/logship/internal/logship/convert"
	"github.com/G-Research/logship/internal/logship/metrics"
	"github.com/G-Research/logship/internal/logship/model"
	"github.com/G-Research/logship/internal/logship/queue"
	"github.com/G-Research/logship/internal/logship/sink"
)

// overflowWarningInterval bounds how often a full queue is reported
const overflowWarningInterval = 10 * time.Second

type State int32

const (
	StateStopped State = iota
	StateRunning
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	default:
		return "Unknown"
	}
}

// Stats are cumulative counts since the forwarder was created
type Stats struct {
	// Events accepted onto the queue
	Submitted uint64
	// Events ignored because they came from the forwarder itself
	Filtered uint64
	// Events rejected because the queue was full
	Dropped uint64
	// Events rejected because the forwarder had been stopped
	DroppedAfterStop uint64
	// Rows delivered to the sink
	FlushedRows uint64
	// Rows thrown away because there was no connection or the insert failed
	DiscardedRows uint64
	FlushFailures uint64
	// Failed attempts to connect to the sink
	ConnectFailures   uint64
	IterationFailures uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("submitted=%d filtered=%d dropped=%d droppedAfterStop=%d flushed=%d discarded=%d "+
		"flushFailures=%d connectFailures=%d iterationFailures=%d",
		s.Submitted, s.Filtered, s.Dropped, s.DroppedAfterStop, s.FlushedRows, s.DiscardedRows,
		s.FlushFailures, s.ConnectFailures, s.IterationFailures)
}

type Option func(*Forwarder)

// WithClock replaces the real clock, for tests
func WithClock(clk clock.Clock) Option {
	return func(f *Forwarder) {
		f.clock = clk
	}
}

// WithProcessInfo replaces the process identity stamped onto rows
func WithProcessInfo(p convert.ProcessInfo) Option {
	return func(f *Forwarder) {
		f.process = p
	}
}

// WithLogger sets the logger used for the forwarder's own messages. A field naming the forwarder as the source is
// always added, so that these messages are recognised by Submit and never forwarded.
func WithLogger(log *logrus.Entry) Option {
	return func(f *Forwarder) {
		f.log = log
	}
}

// Forwarder accepts events from any number of producers and delivers them to a sink in batches from a single
// background worker.
//
// Delivery is best effort: events are dropped when the queue is full, and a batch that cannot be delivered is
// discarded rather than retried. Nothing the forwarder does is ever reported to producers.
type Forwarder struct {
	config  configuration.Configuration
	id      string
	clock   clock.Clock
	process convert.ProcessInfo
	metrics *metrics.Metrics
	log     *logrus.Entry
	queue   *queue.Queue

	// Owned by the worker while it runs, and by Stop once the worker has exited
	connector *sink.Connector
	batch     *batch.Accumulator
	// Rows handed to the sink by the insert in progress
	inFlight int

	state           atomic.Int32
	closed          atomic.Bool
	overflowLimiter *rate.Limiter

	// Guards the lifecycle fields below
	mu        sync.Mutex
	started   bool
	stopped   bool
	abandoned bool
	cancel    context.CancelFunc
	done      chan struct{}

	submitted         atomic.Uint64
	filtered          atomic.Uint64
	droppedAfterStop  atomic.Uint64
	flushedRows       atomic.Uint64
	discardedRows     atomic.Uint64
	flushFailures     atomic.Uint64
	connectFailures   atomic.Uint64
	iterationFailures atomic.Uint64
}

// New creates a stopped forwarder. Zero-valued tunables in config take their defaults.
func New(config configuration.Configuration, dialer sink.Dialer, opts ...Option) *Forwarder {
	config = config.WithDefaults()
	f := &Forwarder{
		config:          config,
		id:              uuid.New().String(),
		clock:           clock.RealClock{},
		process:         convert.NewProcessInfo(),
		metrics:         metrics.Get(),
		log:             logrus.NewEntry(logrus.StandardLogger()),
		overflowLimiter: rate.NewLimiter(rate.Every(overflowWarningInterval), 1),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.WithFields(logrus.Fields{
		"logger":    config.InternalLoggerName,
		"forwarder": f.id,
	})
	f.queue = queue.New(config.QueueCapacity, f.clock)
	f.connector = sink.NewConnector(dialer, f.metrics)
	f.batch = batch.NewAccumulator(config.BatchSize, config.FlushInterval, f.clock)
	return f
}

// Start makes a first attempt to connect to the sink and launches the worker. Failing to connect is not an
// error: the worker retries on every flush. Cancelling ctx has the same effect as Stop, except that the
// connection is closed by the worker itself.
func (f *Forwarder) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started || f.stopped {
		return ErrAlreadyStarted
	}
	f.started = true

	workerCtx, cancel := logctx.WithCancel(logctx.New(ctx, f.log))
	f.cancel = cancel
	f.connect(logctx.Detached(workerCtx))
	f.state.Store(int32(StateRunning))

	go f.run(workerCtx)
	f.log.Infof("Log forwarder started: batch size %d, flush interval %s, queue capacity %d",
		f.config.BatchSize, f.config.FlushInterval, f.config.QueueCapacity)
	return nil
}

// Stop asks the worker to drain and waits up to the configured shutdown timeout for it to finish. If it does,
// any remaining rows are flushed and the connection is closed. If it does not, Stop returns anyway and the worker
// closes the connection whenever it does finish. Calling Stop more than once, or before Start, is harmless.
func (f *Forwarder) Stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	f.closed.Store(true)
	if !f.started {
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	f.log.Info("Shutting down log forwarder")
	f.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
	f.cancel()

	timer := f.clock.NewTimer(f.config.ShutdownTimeout)
	defer timer.Stop()
	select {
	case <-f.done:
	case <-timer.C():
		f.mu.Lock()
		select {
		case <-f.done:
		default:
			f.abandoned = true
			f.mu.Unlock()
			f.log.Warnf("Log forwarder worker did not stop within %s; abandoning it", f.config.ShutdownTimeout)
			return
		}
		f.mu.Unlock()
	}

	ctx, cancel := logctx.WithTimeout(logctx.New(context.Background(), f.log), f.config.ShutdownTimeout)
	defer cancel()
	f.safeFlush(ctx)
	f.connector.Close(ctx)
	f.state.Store(int32(StateStopped))
	f.log.Info("Log forwarder stopped")
}

// Submit hands an event to the forwarder. It never blocks and never fails: events from the forwarder's own logger,
// events arriving after Stop and events that do not fit on the queue are all silently discarded.
func (f *Forwarder) Submit(e model.Event) {
	if f.isInternal(e.Source) {
		f.filtered.Add(1)
		f.metrics.RecordFiltered()
		return
	}
	if f.closed.Load() {
		f.droppedAfterStop.Add(1)
		f.metrics.RecordDropped(metrics.DropReasonStopped)
		return
	}
	if !f.queue.Offer(e) {
		f.metrics.RecordDropped(metrics.DropReasonOverflow)
		if f.overflowLimiter.Allow() {
			f.log.Warnf("Ingestion queue is full (capacity %d); %d events dropped so far",
				f.queue.Cap(), f.queue.Dropped())
		}
		return
	}
	f.submitted.Add(1)
	f.metrics.RecordSubmitted()
}

func (f *Forwarder) State() State {
	return State(f.state.Load())
}

// QueueLen is the number of events waiting for the worker
func (f *Forwarder) QueueLen() int {
	return f.queue.Len()
}

func (f *Forwarder) Stats() Stats {
	return Stats{
		Submitted:         f.submitted.Load(),
		Filtered:          f.filtered.Load(),
		Dropped:           f.queue.Dropped(),
		DroppedAfterStop:  f.droppedAfterStop.Load(),
		FlushedRows:       f.flushedRows.Load(),
		DiscardedRows:     f.discardedRows.Load(),
		FlushFailures:     f.flushFailures.Load(),
		ConnectFailures:   f.connectFailures.Load(),
		IterationFailures: f.iterationFailures.Load(),
	}
}

func (f *Forwarder) isInternal(source string) bool {
	name := f.config.InternalLoggerName
	return source == name || strings.HasPrefix(source, name+".")
}
