package model

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/G-Research/logship/internal/common/logging"
)

// Attribute keys that are promoted to first-class columns and therefore never stored in Attributes.
const (
	AgentIDKey          = "agent_id"
	EndpointKey         = "endpoint"
	ExecutionContextKey = "execution_context"
)

// IsPromoted reports whether key names one of the domain fields that have their own column.
func IsPromoted(key string) bool {
	switch key {
	case AgentIDKey, EndpointKey, ExecutionContextKey:
		return true
	}
	return false
}

// ErrorInfo is the captured form of an error attached to an event
type ErrorInfo struct {
	// Type name of the root cause, e.g. "*net.OpError"
	Kind    string `json:"kind"`
	Message string `json:"message"`
	// Stack recorded where the error was created, when the error carries one
	Trace string `json:"trace,omitempty"`
}

// NewErrorInfo captures err. It returns nil for a nil error.
func NewErrorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	info := &ErrorInfo{
		Kind:    fmt.Sprintf("%T", errors.Cause(err)),
		Message: err.Error(),
	}
	if stack := logging.ExtractStack(err); stack != nil {
		info.Trace = fmt.Sprintf("%s\n%s", err.Error(), logging.FormatStack(stack))
	}
	return info
}

// Event is one structured telemetry record submitted by a producer.
type Event struct {
	Timestamp time.Time    `json:"timestamp"`
	Level     logrus.Level `json:"level"`
	// Name of the component that produced the event
	Source  string `json:"source"`
	Message string `json:"message"`

	AgentID          string `json:"agent_id,omitempty"`
	Endpoint         string `json:"endpoint,omitempty"`
	ExecutionContext string `json:"execution_context,omitempty"`

	Error *ErrorInfo `json:"error,omitempty"`

	// Free-form extra context. Never contains the promoted keys above.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewEvent returns an event stamped with the current time
func NewEvent(level logrus.Level, source, message string) Event {
	return Event{
		Timestamp: time.Now(),
		Level:     level,
		Source:    source,
		Message:   message,
	}
}

// Set records value under key. The promoted keys are routed to their own fields. Values are coerced to text;
// values with no sensible textual form (nil, funcs, channels, unsafe pointers) are silently dropped.
// It reports whether the value was kept.
func (e *Event) Set(key string, value interface{}) bool {
	text, ok := Stringify(value)
	if !ok {
		return false
	}
	switch key {
	case AgentIDKey:
		e.AgentID = text
	case EndpointKey:
		e.Endpoint = text
	case ExecutionContextKey:
		e.ExecutionContext = text
	default:
		if e.Attributes == nil {
			e.Attributes = make(map[string]string)
		}
		e.Attributes[key] = text
	}
	return true
}

// Stringify coerces value to text. The second result is false when value cannot be represented, including when
// its String or Error method panics.
func Stringify(value interface{}) (text string, ok bool) {
	if value == nil {
		return "", false
	}
	switch reflect.TypeOf(value).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return "", false
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		if reflect.ValueOf(value).IsNil() {
			return "", false
		}
	}
	defer func() {
		if r := recover(); r != nil {
			text, ok = "", false
		}
	}()

	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case error:
		return v.Error(), true
	case fmt.Stringer:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case time.Time:
		return v.Format(time.RFC3339Nano), true
	}
	return fmt.Sprint(value), true
}
