package convert

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/G-Research/logship/internal/logship/model"
)

// ProcessInfo identifies the process running the forwarder. It is stamped onto every row.
type ProcessInfo struct {
	Host      string
	ProcessID int
	// Used when the event does not name the worker that produced it
	Worker string
}

// NewProcessInfo describes the current process
func NewProcessInfo() ProcessInfo {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return ProcessInfo{
		Host:      host,
		ProcessID: os.Getpid(),
		Worker:    "main",
	}
}

// ToRow formats an event for insertion. Host, process id and worker name always come from p, never from the event.
func ToRow(e model.Event, p ProcessInfo) model.Row {
	row := model.Row{
		LogTimestamp:     e.Timestamp,
		Level:            strings.ToUpper(e.Level.String()),
		LoggerName:       e.Source,
		Message:          e.Message,
		AgentID:          e.AgentID,
		Endpoint:         e.Endpoint,
		ExecutionContext: e.ExecutionContext,
		Metadata:         metadata(e.Attributes),
		Host:             p.Host,
		ProcessID:        p.ProcessID,
		ThreadName:       p.Worker,
	}
	if e.Error != nil {
		row.ExceptionType = e.Error.Kind
		row.ExceptionMessage = e.Error.Message
		row.StackTrace = e.Error.Trace
	}
	return row
}

// metadata serialises the extra attributes as a JSON object. Promoted keys are skipped in case a producer wrote
// the map directly.
func metadata(attributes map[string]string) string {
	extra := make(map[string]string, len(attributes))
	for k, v := range attributes {
		if !model.IsPromoted(k) {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return ""
	}
	// A map[string]string always marshals
	b, _ := json.Marshal(extra)
	return string(b)
}
