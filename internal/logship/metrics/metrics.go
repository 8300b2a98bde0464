package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type DropReason string

const (
	DropReasonOverflow     DropReason = "overflow"
	DropReasonStopped      DropReason = "stopped"
	DropReasonNoConnection DropReason = "no_connection"
	DropReasonFlushFailed  DropReason = "flush_failed"
)

const LogshipMetricsPrefix = "logship_"

type Metrics struct {
	eventsSubmitted   prometheus.Counter
	eventsFiltered    prometheus.Counter
	eventsDropped     *prometheus.CounterVec
	rowsFlushed       prometheus.Counter
	rowsDiscarded     *prometheus.CounterVec
	flushDuration     prometheus.Histogram
	connectErrors     prometheus.Counter
	iterationErrors   prometheus.Counter
	queueDepth        prometheus.Gauge
	connectionHealthy prometheus.Gauge
}

func NewMetrics(prefix string) *Metrics {
	return &Metrics{
		eventsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + "events_submitted",
			Help: "Number of events accepted onto the ingestion queue",
		}),
		eventsFiltered: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + "events_filtered",
			Help: "Number of events ignored because they came from the forwarder itself",
		}),
		eventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "events_dropped",
			Help: "Number of events rejected before reaching the queue, grouped by reason",
		}, []string{"reason"}),
		rowsFlushed: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + "rows_flushed",
			Help: "Number of rows delivered to the sink",
		}),
		rowsDiscarded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "rows_discarded",
			Help: "Number of batched rows thrown away without delivery, grouped by reason",
		}, []string{"reason"}),
		flushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "flush_duration_seconds",
			Help:    "Time taken to insert a batch into the sink",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		connectErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + "connect_errors",
			Help: "Number of failed attempts to connect to the sink",
		}),
		iterationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: prefix + "worker_iteration_errors",
			Help: "Number of worker iterations that failed unexpectedly",
		}),
		queueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "queue_depth",
			Help: "Number of events waiting on the ingestion queue",
		}),
		connectionHealthy: promauto.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "sink_connected",
			Help: "1 if the forwarder holds a live sink connection, otherwise 0",
		}),
	}
}

var m = NewMetrics(LogshipMetricsPrefix)

func Get() *Metrics {
	return m
}

func (m *Metrics) RecordSubmitted() {
	m.eventsSubmitted.Inc()
}

func (m *Metrics) RecordFiltered() {
	m.eventsFiltered.Inc()
}

func (m *Metrics) RecordDropped(reason DropReason) {
	m.eventsDropped.With(map[string]string{"reason": string(reason)}).Inc()
}

func (m *Metrics) RecordFlushed(rows int, taken time.Duration) {
	m.rowsFlushed.Add(float64(rows))
	m.flushDuration.Observe(taken.Seconds())
}

func (m *Metrics) RecordDiscarded(reason DropReason, rows int) {
	m.rowsDiscarded.With(map[string]string{"reason": string(reason)}).Add(float64(rows))
}

func (m *Metrics) RecordConnectError() {
	m.connectErrors.Inc()
}

func (m *Metrics) RecordIterationError() {
	m.iterationErrors.Inc()
}

func (m *Metrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) SetConnected(connected bool) {
	if connected {
		m.connectionHealthy.Set(1)
	} else {
		m.connectionHealthy.Set(0)
	}
}

// ServeMetrics exposes the default prometheus registry on /metrics at the given port.
// The returned function shuts the server down.
func ServeMetrics(log *logrus.Entry, port uint16) (shutdown func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infof("Starting metrics server on port %d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Metrics server failed")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("Stopping metrics server")
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Metrics server did not shut down cleanly")
		}
	}
}
