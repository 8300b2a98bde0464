package sink

import (
	"github.com/pkg/errors"

	"github.com/G-Research/logship/internal/logship/configuration"
)

// NewDialer returns the dialer for the configured driver
func NewDialer(config configuration.SinkConfig) (Dialer, error) {
	switch config.Driver {
	case configuration.DriverSnowflake, "":
		return NewSnowflakeDialer(config), nil
	case configuration.DriverPostgres:
		return NewPostgresDialer(config), nil
	default:
		return nil, errors.Errorf("unknown sink driver %q", config.Driver)
	}
}
