package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const RFC3339Milli = "2006-01-02T15:04:05.000Z07:00"

// MustConfigureApplicationLogging sets up logging suitable for an application.
// Note that this function will immediately shut down the application if it fails.
func MustConfigureApplicationLogging(config Config) {
	if err := ConfigureApplicationLogging(logrus.StandardLogger(), config); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error initializing logging: "+err.Error())
		os.Exit(1)
	}
}

// ConfigureApplicationLogging configures the supplied logger to write to stdout and, optionally, to a rotated file.
// Each destination has its own level; the logger itself is set to the most verbose of them.
func ConfigureApplicationLogging(logger *logrus.Logger, config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	consoleLevel, _ := ParseLevel(config.Console.Level)

	logger.SetOutput(io.Discard)
	logger.SetFormatter(newFormatter(config.Console.Format))
	logger.AddHook(&writerHook{
		writer:    os.Stdout,
		formatter: newFormatter(config.Console.Format),
		levels:    levelsUpTo(consoleLevel),
	})
	maxLevel := consoleLevel

	if config.File.Enabled {
		fileLevel, _ := ParseLevel(config.File.Level)
		logger.AddHook(&writerHook{
			writer: &lumberjack.Logger{
				Filename:   config.File.LogFile,
				MaxSize:    config.File.Rotation.MaxSizeMb,
				MaxBackups: config.File.Rotation.MaxBackups,
				MaxAge:     config.File.Rotation.MaxAgeDays,
				Compress:   config.File.Rotation.Compress,
			},
			formatter: newFormatter(config.File.Format),
			levels:    levelsUpTo(fileLevel),
		})
		if fileLevel > maxLevel {
			maxLevel = fileLevel
		}
	}

	logger.AddHook(NewPrometheusHook())
	logger.SetLevel(maxLevel)
	return nil
}

// ConfigureCommandLineLogging sets up the standard logger for interactive use: plain messages on stdout.
func ConfigureCommandLineLogging() {
	logrus.SetFormatter(new(CommandLineFormatter))
	logrus.SetOutput(os.Stdout)
}

func newFormatter(format string) logrus.Formatter {
	if format == FormatJSON {
		return &logrus.JSONFormatter{TimestampFormat: RFC3339Milli}
	}
	return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: RFC3339Milli}
}

func levelsUpTo(max logrus.Level) []logrus.Level {
	var levels []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= max {
			levels = append(levels, l)
		}
	}
	return levels
}

// writerHook formats and writes entries at its own levels to its own destination
type writerHook struct {
	writer    io.Writer
	formatter logrus.Formatter
	levels    []logrus.Level
}

func (h *writerHook) Levels() []logrus.Level {
	return h.levels
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(b)
	return err
}
