package model

import "time"

// Columns is the fixed column contract of the sink table, in insertion order.
var Columns = []string{
	"log_timestamp",
	"level",
	"logger_name",
	"message",
	"agent_id",
	"endpoint",
	"execution_context",
	"exception_type",
	"exception_message",
	"stack_trace",
	"metadata",
	"host",
	"process_id",
	"thread_name",
}

// MetadataColumn is the index in Columns of the JSON metadata column
const MetadataColumn = 10

// Row is an event formatted for insertion. Empty strings are written as NULL.
type Row struct {
	LogTimestamp     time.Time
	Level            string
	LoggerName       string
	Message          string
	AgentID          string
	Endpoint         string
	ExecutionContext string
	ExceptionType    string
	ExceptionMessage string
	StackTrace       string
	// JSON object text, or empty when the event had no extra attributes
	Metadata   string
	Host       string
	ProcessID  int
	ThreadName string
}

// Values returns the row's values in Columns order, with empty optional strings as nil.
func (r Row) Values() []interface{} {
	return []interface{}{
		r.LogTimestamp,
		r.Level,
		r.LoggerName,
		r.Message,
		nullable(r.AgentID),
		nullable(r.Endpoint),
		nullable(r.ExecutionContext),
		nullable(r.ExceptionType),
		nullable(r.ExceptionMessage),
		nullable(r.StackTrace),
		nullable(r.Metadata),
		r.Host,
		r.ProcessID,
		nullable(r.ThreadName),
	}
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
