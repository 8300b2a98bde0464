package logship

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/G-Research/logship/internal/common/logctx"
	"github.com/G-Research/logship/internal/logship/configuration"
)

type trackingReader struct {
	io.Reader
	closed bool
}

func (r *trackingReader) Close() error {
	r.closed = true
	return nil
}

func TestRun_Disabled(t *testing.T) {
	input := &trackingReader{Reader: strings.NewReader(`{"message":"ignored"}`)}
	config := configuration.AppConfig{Enabled: false, Forwarder: configuration.Default()}

	err := Run(logctx.Discard(), config, RunOptions{Input: input})

	assert.NoError(t, err)
	assert.True(t, input.closed)
}

func TestRun_UnknownDriver(t *testing.T) {
	input := &trackingReader{Reader: strings.NewReader("")}
	config := configuration.AppConfig{Enabled: true, Forwarder: configuration.Default()}
	config.Forwarder.Sink.Driver = "mysql"

	err := Run(logctx.Discard(), config, RunOptions{Input: input})

	assert.Error(t, err)
}
