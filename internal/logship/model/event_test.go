package model

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_PromotesDomainFields(t *testing.T) {
	e := NewEvent(logrus.InfoLevel, "api", "hello")
	e.Set(AgentIDKey, "agent-7")
	e.Set(EndpointKey, "/v1/challenges")
	e.Set(ExecutionContextKey, "ctx-1")
	e.Set("user", "bob")

	assert.Equal(t, "agent-7", e.AgentID)
	assert.Equal(t, "/v1/challenges", e.Endpoint)
	assert.Equal(t, "ctx-1", e.ExecutionContext)
	assert.Equal(t, map[string]string{"user": "bob"}, e.Attributes)
}

func TestSet_DropsUnrepresentableValues(t *testing.T) {
	e := Event{}
	var nilMap map[string]int
	assert.False(t, e.Set("fn", func() {}))
	assert.False(t, e.Set("ch", make(chan int)))
	assert.False(t, e.Set("nil", nil))
	assert.False(t, e.Set("nilmap", nilMap))
	assert.Nil(t, e.Attributes)
}

type endpointName struct {
	name string
}

func (n *endpointName) String() string {
	return n.name
}

type lookupError struct {
	key string
}

func (e *lookupError) Error() string {
	return "no such key " + e.key
}

type brokenStringer struct{}

func (brokenStringer) String() string {
	panic("broken")
}

func TestStringify_NilReceivers(t *testing.T) {
	var name *endpointName
	var err *lookupError
	var errIface error = err

	for label, value := range map[string]interface{}{
		"nil stringer":       name,
		"nil error":          err,
		"nil error in iface": errIface,
		"panicking stringer": brokenStringer{},
	} {
		t.Run(label, func(t *testing.T) {
			var text string
			var ok bool
			require.NotPanics(t, func() { text, ok = Stringify(value) })
			assert.False(t, ok)
			assert.Empty(t, text)
		})
	}

	text, ok := Stringify(&endpointName{name: "/v1/run"})
	assert.True(t, ok)
	assert.Equal(t, "/v1/run", text)
}

func TestSet_NilStringerIsDropped(t *testing.T) {
	e := Event{}
	var name *endpointName
	assert.False(t, e.Set("endpoint_name", name))
	assert.Nil(t, e.Attributes)
}

func TestStringify(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		in       interface{}
		expected string
	}{
		{"s", "s"},
		{[]byte("b"), "b"},
		{42, "42"},
		{int64(-1), "-1"},
		{1.5, "1.5"},
		{true, "true"},
		{ts, "2024-01-02T03:04:05Z"},
		{fmt.Errorf("boom"), "boom"},
		{net.IPv4(10, 0, 0, 1), "10.0.0.1"},
		{[]int{1, 2}, "[1 2]"},
		{uint8(7), "7"},
	}
	for _, tc := range tests {
		actual, ok := Stringify(tc.in)
		require.True(t, ok, "%v", tc.in)
		assert.Equal(t, tc.expected, actual)
	}
}

func TestNewErrorInfo(t *testing.T) {
	assert.Nil(t, NewErrorInfo(nil))

	err := errors.Wrap(&net.AddrError{Err: "bad", Addr: "x"}, "dialling")
	info := NewErrorInfo(err)
	require.NotNil(t, info)
	assert.Equal(t, "*net.AddrError", info.Kind)
	assert.Equal(t, "dialling: address x: bad", info.Message)
	assert.Contains(t, info.Trace, "TestNewErrorInfo")
}

func TestNewErrorInfo_NoStack(t *testing.T) {
	info := NewErrorInfo(fmt.Errorf("plain"))
	require.NotNil(t, info)
	assert.Equal(t, "*errors.errorString", info.Kind)
	assert.Equal(t, "plain", info.Message)
	assert.Empty(t, info.Trace)
}

func TestRowValues_NullsEmptyOptionals(t *testing.T) {
	r := Row{Level: "INFO", LoggerName: "api", Message: "m", Host: "h", ProcessID: 1}
	values := r.Values()
	require.Len(t, values, len(Columns))
	assert.Equal(t, "INFO", values[1])
	assert.Nil(t, values[4])
	assert.Nil(t, values[MetadataColumn])
	assert.Nil(t, values[13])
}
