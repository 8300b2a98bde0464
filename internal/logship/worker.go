package logship

import (
	"runtime/debug"

	"github.com/pkg/errors"

	"github.com/G-Research/logship/internal/common/logctx"
	"github.com/G-Research/logship/internal/common/logging"
	"github.com/G-Research/logship/internal/logship/convert"
	"github.com/G-Research/logship/internal/logship/metrics"
)

// run is the worker loop. It alone touches the batch and the connector until it closes f.done.
func (f *Forwarder) run(ctx *logctx.Context) {
	defer f.finish(ctx)
	for ctx.Err() == nil {
		if err := f.iterate(ctx); err != nil {
			f.iterationFailures.Add(1)
			f.metrics.RecordIterationError()
			logging.WithStacktrace(ctx.Log, err).Error("Log forwarder worker iteration failed")
			f.backoff(ctx)
		}
	}
	f.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
	f.drain(ctx)
}

// iterate waits for at most one event, adds it to the batch and flushes if a threshold has been reached.
// A panic anywhere in here is turned into an error so that the worker survives it.
func (f *Forwarder) iterate(ctx *logctx.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ErrWorkerIteration{Err: errors.Errorf("panic: %v\n%s", r, debug.Stack())}
			f.discardInFlight()
		}
	}()

	if e, ok := f.queue.Take(ctx, f.config.TakeTimeout); ok {
		f.batch.Add(convert.ToRow(e, f.process))
	}
	f.metrics.SetQueueDepth(f.queue.Len())
	if f.batch.ShouldFlush() {
		// Inserts are not cut short by shutdown
		f.flush(logctx.Detached(ctx))
	}
	return nil
}

// drain moves whatever is still queued into the batch, flushing each time it fills. The final partial batch is
// left for Stop, or flushed by finish if nobody is waiting for the worker any more.
func (f *Forwarder) drain(ctx *logctx.Context) {
	flushCtx := logctx.Detached(ctx)
	drained := 0
	for {
		e, ok := f.queue.TryTake()
		if !ok {
			break
		}
		drained++
		f.batch.Add(convert.ToRow(e, f.process))
		if f.batch.Full() {
			f.safeFlush(flushCtx)
		}
	}
	f.metrics.SetQueueDepth(0)
	if drained > 0 {
		ctx.Log.Debugf("Drained %d queued events", drained)
	}
}

func (f *Forwarder) finish(ctx *logctx.Context) {
	f.mu.Lock()
	if f.stopped && !f.abandoned {
		// Stop is waiting and takes over from here
		close(f.done)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	// Either Stop gave up waiting, or the context passed to Start was cancelled. Nobody else will close the
	// connection.
	flushCtx, cancel := logctx.WithTimeout(logctx.Detached(ctx), f.config.ShutdownTimeout)
	defer cancel()
	f.safeFlush(flushCtx)
	f.connector.Close(flushCtx)
	f.closed.Store(true)
	f.state.Store(int32(StateStopped))
	close(f.done)
}

// flush delivers the current batch, if any. The batch is emptied whatever happens: rows that cannot be
// delivered are discarded, never retried.
func (f *Forwarder) flush(ctx *logctx.Context) {
	if f.batch.Len() == 0 {
		return
	}
	if !f.connector.Connected() && !f.connect(ctx) {
		rows := f.batch.Take()
		f.discard(metrics.DropReasonNoConnection, len(rows))
		ctx.Log.Warnf("Cannot flush %d logs - no sink connection", len(rows))
		return
	}

	rows := f.batch.Take()
	start := f.clock.Now()
	f.inFlight = len(rows)
	err := f.connector.ExecuteBatch(ctx, rows)
	f.inFlight = 0
	if err != nil {
		f.flushFailures.Add(1)
		f.discard(metrics.DropReasonFlushFailed, len(rows))
		ctx.Log.WithError(&ErrFlush{Rows: len(rows), Err: err}).Error("Failed to flush logs to sink; batch discarded")
		f.connector.Invalidate(ctx)
		return
	}
	taken := f.clock.Since(start)
	f.flushedRows.Add(uint64(len(rows)))
	f.metrics.RecordFlushed(len(rows), taken)
	ctx.Log.Debugf("Flushed %d logs in %s", len(rows), taken)
}

// safeFlush is flush for use outside iterate, where nothing else would recover a panic
func (f *Forwarder) safeFlush(ctx *logctx.Context) {
	defer func() {
		if r := recover(); r != nil {
			err := &ErrWorkerIteration{Err: errors.Errorf("panic: %v", r)}
			f.iterationFailures.Add(1)
			f.metrics.RecordIterationError()
			ctx.Log.WithError(err).Error("Log forwarder flush failed")
			f.discardInFlight()
			if f.batch.Len() > 0 {
				f.discard(metrics.DropReasonFlushFailed, len(f.batch.Take()))
			}
		}
	}()
	f.flush(ctx)
}

func (f *Forwarder) connect(ctx *logctx.Context) bool {
	if f.connector.Connect(ctx) {
		return true
	}
	f.connectFailures.Add(1)
	return false
}

// discardInFlight accounts for the rows of an insert that panicked
func (f *Forwarder) discardInFlight() {
	if f.inFlight > 0 {
		f.discard(metrics.DropReasonFlushFailed, f.inFlight)
		f.inFlight = 0
	}
}

func (f *Forwarder) discard(reason metrics.DropReason, rows int) {
	f.discardedRows.Add(uint64(rows))
	f.metrics.RecordDiscarded(reason, rows)
}

func (f *Forwarder) backoff(ctx *logctx.Context) {
	if f.config.IterationBackoff <= 0 {
		return
	}
	timer := f.clock.NewTimer(f.config.IterationBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C():
	}
}
