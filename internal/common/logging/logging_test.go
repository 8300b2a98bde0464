package logging

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"INFO":    logrus.InfoLevel,
		"Warning": logrus.WarnLevel,
		"warn":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
	}
	for in, expected := range tests {
		t.Run(in, func(t *testing.T) {
			level, err := ParseLevel(in)
			require.NoError(t, err)
			assert.Equal(t, expected, level)
		})
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	c := DefaultConfig()
	assert.NoError(t, c.Validate())

	c.Console.Format = "xml"
	assert.EqualError(t, c.Validate(), "unknown log format: xml.  Valid formats are [json text]")

	c = DefaultConfig()
	c.File.Enabled = true
	c.File.Level = "info"
	c.File.Format = FormatJSON
	assert.Error(t, c.Validate())
	c.File.LogFile = "/tmp/logship.log"
	assert.NoError(t, c.Validate())
}

func TestWithStacktrace(t *testing.T) {
	logger, hook := test.NewNullLogger()

	err := errors.WithStack(errors.New("test error"))
	WithStacktrace(logrus.NewEntry(logger), err).Info("test message")

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, "test message", entry.Message)
	assert.Equal(t, err, entry.Data[logrus.ErrorKey])
	assert.Contains(t, entry.Data[Stacktrace], "TestWithStacktrace")
}

func TestExtractStack_NoStack(t *testing.T) {
	assert.Nil(t, ExtractStack(errNoStack{}))
}

func TestExtractStack_FollowsCause(t *testing.T) {
	err := errors.WithMessage(errors.New("inner"), "outer")
	assert.NotNil(t, ExtractStack(err))
}

func TestWriterHook_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	logger.AddHook(&writerHook{
		writer:    &buf,
		formatter: new(CommandLineFormatter),
		levels:    levelsUpTo(logrus.WarnLevel),
	})

	logger.Info("quiet")
	logger.Warn("loud")

	assert.Equal(t, "WARNING: loud\n", buf.String())
}

type errNoStack struct{}

func (errNoStack) Error() string { return "no stack" }
