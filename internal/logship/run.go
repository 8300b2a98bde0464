package logship

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/G-Research/logship/internal/common/logctx"
	"github.com/G-Research/logship/internal/common/util"
	"github.com/G-Research/logship/internal/logship/configuration"
	"github.com/G-Research/logship/internal/logship/hook"
	"github.com/G-Research/logship/internal/logship/metrics"
	"github.com/G-Research/logship/internal/logship/sink"
	"github.com/G-Research/logship/internal/logship/source"
)

// RunOptions controls what the logship command feeds into the forwarder
type RunOptions struct {
	// Newline-delimited JSON events. Closed when Run returns.
	Input io.ReadCloser
	// Also forward the command's own log output, via a hook on the standard logger
	CaptureLogs bool
}

// Run forwards every event read from opts.Input until the input is exhausted or ctx is cancelled, then stops
// the forwarder, waiting for it to drain.
func Run(ctx *logctx.Context, config configuration.AppConfig, opts RunOptions) error {
	if !config.Enabled {
		ctx.Log.Info("Log forwarding is disabled; nothing to do")
		util.CloseResource(ctx.Log, "input", opts.Input)
		return nil
	}

	dialer, err := sink.NewDialer(config.Forwarder.Sink)
	if err != nil {
		return err
	}
	ctx = logctx.WithLogFields(ctx, logrus.Fields{
		"driver": config.Forwarder.Sink.Driver,
		"table":  config.Forwarder.Sink.TableName,
	})
	ctx.Log.Infof("Forwarding to %s as %s", dialer.Describe(), config.Forwarder.Sink.Principal)

	if config.MetricsPort > 0 {
		shutdownMetricsServer := metrics.ServeMetrics(ctx.Log, config.MetricsPort)
		defer shutdownMetricsServer()
	}

	fwd := New(config.Forwarder, dialer, WithLogger(ctx.Log))
	if err := fwd.Start(ctx); err != nil {
		return err
	}
	defer fwd.Stop()

	if opts.CaptureLogs {
		logrus.StandardLogger().AddHook(hook.New(fwd))
	}

	g, gctx := logctx.ErrGroup(ctx)
	readCtx, stopReading := logctx.WithCancel(logctx.WithLogField(gctx, "input", "ndjson"))
	g.Go(func() error {
		defer stopReading()
		stats, err := source.ReadEvents(readCtx, readCtx.Log, opts.Input, fwd.Submit)
		readCtx.Log.Infof("Read %d events: %d submitted, %d malformed", stats.Lines, stats.Submitted, stats.Malformed)
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Unblocks a read in progress when shutting down early
		<-readCtx.Done()
		util.CloseResource(readCtx.Log, "input", opts.Input)
		return nil
	})
	err = g.Wait()

	fwd.Stop()
	ctx.Log.Infof("Log forwarder finished: %s", fwd.Stats())
	return err
}
