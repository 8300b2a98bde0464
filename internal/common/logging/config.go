package logging

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

var validLogFormats = map[string]bool{
	FormatText: true,
	FormatJSON: true,
}

// Config defines process logging configuration.
type Config struct {
	// Defines configuration for console logging on stdout
	Console struct {
		// Log level, e.g. INFO, ERROR etc
		Level string `mapstructure:"level"`
		// Logging format, either text or json
		Format string `mapstructure:"format"`
	} `mapstructure:"console"`
	// Defines configuration for file logging
	File struct {
		// Whether file logging is enabled.
		Enabled bool `mapstructure:"enabled"`
		// Log level, e.g. INFO, ERROR etc
		Level string `mapstructure:"level"`
		// Logging format, either text or json
		Format string `mapstructure:"format"`
		// The Location of the logfile on disk
		LogFile string `mapstructure:"logfile"`
		// Log Rotation Options
		Rotation struct {
			// Maximum size in megabytes of the log file before it gets rotated
			MaxSizeMb int `mapstructure:"maxSizeMb"`
			// Maximum number of old log files to retain
			MaxBackups int `mapstructure:"maxBackups"`
			// Maximum number of days to retain old log files
			MaxAgeDays int `mapstructure:"maxAgeDays"`
			// Whether to compress rotated log files
			Compress bool `mapstructure:"compress"`
		} `mapstructure:"rotation"`
	} `mapstructure:"file"`
}

// DefaultConfig logs at info level, as text, to stdout only.
func DefaultConfig() Config {
	c := Config{}
	c.Console.Level = "info"
	c.Console.Format = FormatText
	return c
}

func (c Config) Validate() error {
	if _, err := ParseLevel(c.Console.Level); err != nil {
		return err
	}
	if err := validateLogFormat(c.Console.Format); err != nil {
		return err
	}

	if c.File.Enabled {
		if _, err := ParseLevel(c.File.Level); err != nil {
			return err
		}
		if err := validateLogFormat(c.File.Format); err != nil {
			return err
		}
		if c.File.LogFile == "" {
			return errors.New("file.logfile must be set when file logging is enabled")
		}
		if c.File.Rotation.MaxSizeMb < 0 {
			return errors.New("rotation.maxSizeMb must not be negative")
		}
	}
	return nil
}

func validateLogFormat(f string) error {
	if _, ok := validLogFormats[f]; !ok {
		formats := maps.Keys(validLogFormats)
		slices.Sort(formats)
		return errors.Errorf("unknown log format: %s.  Valid formats are %s", f, formats)
	}
	return nil
}

// ParseLevel accepts the usual level names in any case. "warning" is accepted as an alias of "warn".
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn", "warning":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	case "fatal":
		return logrus.FatalLevel, nil
	case "panic":
		return logrus.PanicLevel, nil
	default:
		return logrus.InfoLevel, errors.Errorf("unknown level: %s", level)
	}
}
