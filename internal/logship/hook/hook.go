// Package hook feeds entries written through logrus into a forwarder.
package hook

import (
	"github.com/sirupsen/logrus"

	"github.com/G-Research/logship/internal/common/logging"
	"github.com/G-Research/logship/internal/logship/model"
)

const (
	// SourceField names the field holding the name of the component that logged the entry
	SourceField   = "logger"
	// DefaultSource is used for entries with no SourceField
	DefaultSource = "root"
)

// Submitter accepts events without blocking
type Submitter interface {
	Submit(e model.Event)
}

type Option func(*Hook)

// WithLevels restricts the hook to the given levels. By default every level is forwarded.
func WithLevels(levels ...logrus.Level) Option {
	return func(h *Hook) {
		h.levels = levels
	}
}

// WithDefaultSource sets the source recorded for entries that do not name one
func WithDefaultSource(source string) Option {
	return func(h *Hook) {
		h.defaultSource = source
	}
}

// Hook is a logrus.Hook that converts each entry into an event and submits it.
// It never fails, so a broken sink can never break the application's logging.
type Hook struct {
	submitter     Submitter
	levels        []logrus.Level
	defaultSource string
}

func New(submitter Submitter, opts ...Option) *Hook {
	h := &Hook{
		submitter:     submitter,
		levels:        logrus.AllLevels,
		defaultSource: DefaultSource,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hook) Levels() []logrus.Level {
	return h.levels
}

func (h *Hook) Fire(entry *logrus.Entry) error {
	h.submitter.Submit(h.toEvent(entry))
	return nil
}

func (h *Hook) toEvent(entry *logrus.Entry) model.Event {
	e := model.Event{
		Timestamp: entry.Time,
		Level:     entry.Level,
		Source:    h.defaultSource,
		Message:   entry.Message,
	}
	for key, value := range entry.Data {
		switch key {
		case SourceField:
			if s, ok := model.Stringify(value); ok && s != "" {
				e.Source = s
			}
		case logrus.ErrorKey:
			if err, ok := value.(error); ok {
				e.Error = model.NewErrorInfo(err)
			} else {
				e.Set(key, value)
			}
		default:
			e.Set(key, value)
		}
	}
	// Already captured alongside the error
	if e.Error != nil && e.Error.Trace != "" {
		delete(e.Attributes, logging.Stacktrace)
	}
	return e
}
