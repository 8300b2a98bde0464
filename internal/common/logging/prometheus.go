package logging

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	logMessages     *prometheus.CounterVec
	logMessagesOnce sync.Once
)

// PrometheusHook implements logrus.Hook and counts log lines by level
type PrometheusHook struct {
	counters map[logrus.Level]prometheus.Counter
}

// NewPrometheusHook creates the log line counter on first use and returns a hook feeding it.
func NewPrometheusHook() *PrometheusHook {
	logMessagesOnce.Do(func() {
		logMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "log_messages",
			Help: "Total number of log lines logged by level",
		}, []string{"level"})
		prometheus.MustRegister(logMessages)
	})

	counters := make(map[logrus.Level]prometheus.Counter)
	for _, level := range []logrus.Level{
		logrus.DebugLevel,
		logrus.InfoLevel,
		logrus.WarnLevel,
		logrus.ErrorLevel,
	} {
		counters[level] = logMessages.WithLabelValues(level.String())
	}
	return &PrometheusHook{counters: counters}
}

func (h *PrometheusHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *PrometheusHook) Fire(entry *logrus.Entry) error {
	if counter, ok := h.counters[entry.Level]; ok {
		counter.Inc()
	}
	return nil
}
