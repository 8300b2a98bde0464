package configuration

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DriverSnowflake = "snowflake"
	DriverPostgres  = "postgres"

	DefaultDatabase           = "LOG_DB"
	DefaultSchema             = "RAW"
	DefaultWarehouse          = "LOG_WH"
	DefaultTableName          = "app_logs"
	DefaultBatchSize          = 100
	DefaultFlushInterval      = 5 * time.Second
	DefaultQueueCapacity      = 10000
	DefaultTakeTimeout        = time.Second
	DefaultIterationBackoff   = time.Second
	DefaultShutdownTimeout    = 10 * time.Second
	DefaultConnectTimeout     = 10 * time.Second
	DefaultInternalLoggerName = "logship"
)

// CredentialKind says which of the two supported secrets authenticates the principal
type CredentialKind string

const (
	CredentialPassword CredentialKind = "password"
	CredentialToken    CredentialKind = "token"
)

func (k *CredentialKind) UnmarshalText(text []byte) error {
	switch CredentialKind(strings.ToLower(strings.TrimSpace(string(text)))) {
	case CredentialPassword:
		*k = CredentialPassword
	case CredentialToken:
		*k = CredentialToken
	case "":
		*k = ""
	default:
		return errors.Errorf("unknown credential kind %q: must be one of [password token]", string(text))
	}
	return nil
}

// Credential holds exactly one of a static password or a bearer token.
type Credential struct {
	// Optional. Inferred from whichever secret is set when empty.
	Kind     CredentialKind `mapstructure:"kind"`
	Password string         `mapstructure:"password"`
	Token    string         `mapstructure:"token"`
}

// EffectiveKind returns Kind, or the kind implied by which secret is present when Kind is unset.
func (c Credential) EffectiveKind() CredentialKind {
	if c.Kind != "" {
		return c.Kind
	}
	if c.Token != "" {
		return CredentialToken
	}
	return CredentialPassword
}

// Secret returns the value of the effective credential
func (c Credential) Secret() string {
	if c.EffectiveKind() == CredentialToken {
		return c.Token
	}
	return c.Password
}

// SinkConfig describes how to reach the remote table rows are inserted into
type SinkConfig struct {
	// Which client is used to reach the sink: snowflake or postgres
	Driver string `mapstructure:"driver" validate:"oneof=snowflake postgres"`
	// Snowflake account identifier, or host[:port] for postgres
	Endpoint string `mapstructure:"endpoint" validate:"required"`
	// User the forwarder authenticates as
	Principal  string     `mapstructure:"principal" validate:"required"`
	Credential Credential `mapstructure:"credential"`
	Database   string     `mapstructure:"database" validate:"required,identifier"`
	Schema     string     `mapstructure:"schema" validate:"required,identifier"`
	// Compute warehouse. Only meaningful for snowflake.
	Warehouse string `mapstructure:"warehouse"`
	// Optional role assumed after connecting
	Role      string `mapstructure:"role"`
	TableName string `mapstructure:"tableName" validate:"required,identifier"`
	// Upper bound on establishing a connection
	ConnectTimeout time.Duration `mapstructure:"connectTimeout" validate:"gte=0"`
}

// Configuration is the config object for the log forwarder. It is treated as immutable once passed to the forwarder.
type Configuration struct {
	Sink SinkConfig `mapstructure:"sink"`
	// Number of rows that will be batched together before being inserted into the sink
	BatchSize int `mapstructure:"batchSize" validate:"gt=0"`
	// Maximum time since the last flush before a non-empty batch will be inserted into the sink
	FlushInterval time.Duration `mapstructure:"flushInterval" validate:"gt=0"`
	// Number of events that can be queued waiting for the worker. Further events are dropped.
	QueueCapacity int `mapstructure:"queueCapacity" validate:"gt=0"`
	// How long the worker waits for an event before re-evaluating the flush condition
	TakeTimeout time.Duration `mapstructure:"takeTimeout" validate:"gt=0"`
	// Pause after a failed worker iteration
	IterationBackoff time.Duration `mapstructure:"iterationBackoff" validate:"gte=0"`
	// How long Stop waits for the worker to drain
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" validate:"gt=0"`
	// Source name used by the forwarder's own log lines. Events from this source are never forwarded.
	InternalLoggerName string `mapstructure:"internalLoggerName" validate:"required"`
}

// Default returns a Configuration with every optional field at its default value.
func Default() Configuration {
	return Configuration{
		Sink: SinkConfig{
			Driver:         DriverSnowflake,
			Database:       DefaultDatabase,
			Schema:         DefaultSchema,
			Warehouse:      DefaultWarehouse,
			TableName:      DefaultTableName,
			ConnectTimeout: DefaultConnectTimeout,
		},
		BatchSize:          DefaultBatchSize,
		FlushInterval:      DefaultFlushInterval,
		QueueCapacity:      DefaultQueueCapacity,
		TakeTimeout:        DefaultTakeTimeout,
		IterationBackoff:   DefaultIterationBackoff,
		ShutdownTimeout:    DefaultShutdownTimeout,
		InternalLoggerName: DefaultInternalLoggerName,
	}
}

// WithDefaults returns a copy of c where every zero-valued tunable is replaced by its default.
// Connection details are left alone.
func (c Configuration) WithDefaults() Configuration {
	d := Default()
	if c.Sink.Driver == "" {
		c.Sink.Driver = d.Sink.Driver
	}
	if c.Sink.Database == "" {
		c.Sink.Database = d.Sink.Database
	}
	if c.Sink.Schema == "" {
		c.Sink.Schema = d.Sink.Schema
	}
	if c.Sink.TableName == "" {
		c.Sink.TableName = d.Sink.TableName
	}
	if c.Sink.ConnectTimeout == 0 {
		c.Sink.ConnectTimeout = d.Sink.ConnectTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = d.FlushInterval
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = d.QueueCapacity
	}
	if c.TakeTimeout <= 0 {
		c.TakeTimeout = d.TakeTimeout
	}
	if c.IterationBackoff < 0 {
		c.IterationBackoff = d.IterationBackoff
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.InternalLoggerName == "" {
		c.InternalLoggerName = d.InternalLoggerName
	}
	return c
}
