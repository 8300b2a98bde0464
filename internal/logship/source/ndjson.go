// Package source reads events from newline-delimited JSON streams, such as the output of a sidecar or a log file.
package source

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/G-Research/logship/internal/common/logging"
	"github.com/G-Research/logship/internal/logship/model"
)

const maxLineBytes = 1024 * 1024

// Stats summarises one call to ReadEvents
type Stats struct {
	Lines     int
	Submitted int
	Malformed int
}

// line is the wire form of an event. Every field but message is optional.
type line struct {
	Timestamp        time.Time              `json:"timestamp"`
	Level            string                 `json:"level"`
	Source           string                 `json:"source"`
	Message          *string                `json:"message"`
	AgentID          string                 `json:"agent_id"`
	Endpoint         string                 `json:"endpoint"`
	ExecutionContext string                 `json:"execution_context"`
	Error            *model.ErrorInfo       `json:"error"`
	Attributes       map[string]interface{} `json:"attributes"`
}

// ReadEvents parses r one line at a time and passes every well-formed event to submit. Blank lines are skipped.
// Lines that are not valid events are counted, logged at debug and otherwise ignored. It returns when r is
// exhausted, ctx is done or a read fails.
func ReadEvents(ctx context.Context, log *logrus.Entry, r io.Reader, submit func(model.Event)) (Stats, error) {
	var stats Stats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		stats.Lines++
		e, err := parse(text)
		if err != nil {
			stats.Malformed++
			log.WithError(err).Debugf("Skipping malformed line %d", stats.Lines)
			continue
		}
		submit(e)
		stats.Submitted++
	}
	if err := scanner.Err(); err != nil {
		return stats, errors.WithStack(err)
	}
	return stats, nil
}

func parse(text string) (model.Event, error) {
	var l line
	if err := json.Unmarshal([]byte(text), &l); err != nil {
		return model.Event{}, errors.WithStack(err)
	}
	if l.Message == nil {
		return model.Event{}, errors.New("event has no message")
	}
	level := logrus.InfoLevel
	if l.Level != "" {
		parsed, err := logging.ParseLevel(l.Level)
		if err != nil {
			return model.Event{}, err
		}
		level = parsed
	}
	e := model.Event{
		Timestamp:        l.Timestamp,
		Level:            level,
		Source:           l.Source,
		Message:          *l.Message,
		AgentID:          l.AgentID,
		Endpoint:         l.Endpoint,
		ExecutionContext: l.ExecutionContext,
		Error:            l.Error,
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	for k, v := range l.Attributes {
		e.Set(k, v)
	}
	return e, nil
}
