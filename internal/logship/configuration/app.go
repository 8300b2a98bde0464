package configuration

import (
	"github.com/spf13/viper"

	"github.com/G-Research/logship/internal/common/logging"
)

const (
	EnvPrefix          = "LOGSHIP"
	DefaultMetricsPort = 9090
)

// AppConfig is the configuration of the logship command
type AppConfig struct {
	// Master switch. When false the command exits without connecting to anything.
	Enabled bool `mapstructure:"enabled"`
	// Port for the prometheus endpoint. 0 disables it.
	MetricsPort uint16         `mapstructure:"metricsPort"`
	Logging     logging.Config `mapstructure:"logging"`
	Forwarder   Configuration  `mapstructure:"forwarder"`
}

// SetDefaults registers a default for every key, so that each one can also be supplied through the environment.
func SetDefaults(v *viper.Viper) {
	d := Default()
	l := logging.DefaultConfig()

	v.SetDefault("enabled", true)
	v.SetDefault("metricsPort", DefaultMetricsPort)

	v.SetDefault("logging.console.level", l.Console.Level)
	v.SetDefault("logging.console.format", l.Console.Format)
	v.SetDefault("logging.file.enabled", l.File.Enabled)
	v.SetDefault("logging.file.level", l.File.Level)
	v.SetDefault("logging.file.format", l.File.Format)
	v.SetDefault("logging.file.logfile", l.File.LogFile)
	v.SetDefault("logging.file.rotation.maxSizeMb", l.File.Rotation.MaxSizeMb)
	v.SetDefault("logging.file.rotation.maxBackups", l.File.Rotation.MaxBackups)
	v.SetDefault("logging.file.rotation.maxAgeDays", l.File.Rotation.MaxAgeDays)
	v.SetDefault("logging.file.rotation.compress", l.File.Rotation.Compress)

	v.SetDefault("forwarder.sink.driver", d.Sink.Driver)
	v.SetDefault("forwarder.sink.endpoint", "")
	v.SetDefault("forwarder.sink.principal", "")
	v.SetDefault("forwarder.sink.credential.kind", "")
	v.SetDefault("forwarder.sink.credential.password", "")
	v.SetDefault("forwarder.sink.credential.token", "")
	v.SetDefault("forwarder.sink.database", d.Sink.Database)
	v.SetDefault("forwarder.sink.schema", d.Sink.Schema)
	v.SetDefault("forwarder.sink.warehouse", d.Sink.Warehouse)
	v.SetDefault("forwarder.sink.role", "")
	v.SetDefault("forwarder.sink.tableName", d.Sink.TableName)
	v.SetDefault("forwarder.sink.connectTimeout", d.Sink.ConnectTimeout)
	v.SetDefault("forwarder.batchSize", d.BatchSize)
	v.SetDefault("forwarder.flushInterval", d.FlushInterval)
	v.SetDefault("forwarder.queueCapacity", d.QueueCapacity)
	v.SetDefault("forwarder.takeTimeout", d.TakeTimeout)
	v.SetDefault("forwarder.iterationBackoff", d.IterationBackoff)
	v.SetDefault("forwarder.shutdownTimeout", d.ShutdownTimeout)
	v.SetDefault("forwarder.internalLoggerName", d.InternalLoggerName)
}
