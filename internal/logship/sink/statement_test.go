package sink

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-Research/logship/internal/logship/configuration"
	"github.com/G-Research/logship/internal/logship/model"
)

var (
	baseTime = time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)
	testRows = []model.Row{
		{
			LogTimestamp: baseTime,
			Level:        "INFO",
			LoggerName:   "api",
			Message:      "first",
			AgentID:      "agent-1",
			Metadata:     `{"k":"v"}`,
			Host:         "host-1",
			ProcessID:    42,
			ThreadName:   "main",
		},
		{
			LogTimestamp: baseTime.Add(time.Second),
			Level:        "ERROR",
			LoggerName:   "api",
			Message:      "second",
			Host:         "host-1",
			ProcessID:    42,
		},
	}
)

func TestSnowflakeInsert(t *testing.T) {
	query, args := SnowflakeInsert("app_logs", testRows)

	expectedPrefix := "INSERT INTO app_logs (log_timestamp, level, logger_name, message, agent_id, endpoint, " +
		"execution_context, exception_type, exception_message, stack_trace, metadata, host, process_id, thread_name) " +
		"SELECT column1, column2, column3, column4, column5, column6, column7, column8, column9, column10, " +
		"PARSE_JSON(column11), column12, column13, column14 FROM VALUES "
	require.True(t, strings.HasPrefix(query, expectedPrefix), query)
	assert.Equal(t, 2, strings.Count(query, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"))
	assert.Equal(t, 28, strings.Count(query, "?"))

	require.Len(t, args, 28)
	assert.Equal(t, baseTime, args[0])
	assert.Equal(t, "first", args[3])
	assert.Equal(t, `{"k":"v"}`, args[model.MetadataColumn])
	assert.Equal(t, "second", args[14+3])
	assert.Nil(t, args[14+model.MetadataColumn])
}

func TestPostgresInsert(t *testing.T) {
	query, args, err := PostgresInsert("raw", "app_logs", testRows)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, `INSERT INTO "raw"."app_logs" ("log_timestamp", "level", "logger_name"`), query)
	assert.Equal(t, 1, strings.Count(query, "INSERT"))
	assert.Contains(t, query, "$1")
	assert.Contains(t, args, "first")
	assert.Contains(t, args, "second")
	assert.Contains(t, args, `{"k":"v"}`)
}

func TestPostgresConnectionString(t *testing.T) {
	d := NewPostgresDialer(configuration.SinkConfig{
		Endpoint:       "db.internal:5433",
		Principal:      "logship",
		Credential:     configuration.Credential{Password: `it's\secret`},
		Database:       "logs",
		ConnectTimeout: 10 * time.Second,
	})
	assert.Equal(t,
		`application_name='logship' connect_timeout='10' dbname='logs' host='db.internal' password='it\'s\\secret' port='5433' user='logship'`,
		d.ConnectionString())
}

func TestSnowflakeConfig(t *testing.T) {
	sinkConfig := configuration.SinkConfig{
		Endpoint:   "xy12345",
		Principal:  "LOGSHIP",
		Credential: configuration.Credential{Token: "pat"},
		Database:   "LOG_DB",
		Schema:     "RAW",
		Warehouse:  "LOG_WH",
		Role:       "LOGGER",
	}
	cfg := NewSnowflakeDialer(sinkConfig).Config()
	assert.Equal(t, "xy12345", cfg.Account)
	assert.Equal(t, "LOGSHIP", cfg.User)
	assert.Equal(t, "pat", cfg.Token)
	assert.Empty(t, cfg.Password)
	assert.Equal(t, "LOGGER", cfg.Role)
	assert.Equal(t, "LOG_WH", cfg.Warehouse)

	sinkConfig.Credential = configuration.Credential{Password: "pw"}
	cfg = NewSnowflakeDialer(sinkConfig).Config()
	assert.Equal(t, "pw", cfg.Password)
	assert.Empty(t, cfg.Token)
}

func TestNewDialer(t *testing.T) {
	d, err := NewDialer(configuration.SinkConfig{Driver: configuration.DriverPostgres})
	require.NoError(t, err)
	assert.IsType(t, &PostgresDialer{}, d)

	d, err = NewDialer(configuration.SinkConfig{Driver: configuration.DriverSnowflake})
	require.NoError(t, err)
	assert.IsType(t, &SnowflakeDialer{}, d)

	_, err = NewDialer(configuration.SinkConfig{Driver: "mysql"})
	assert.Error(t, err)
}

func TestDescribeOmitsSecrets(t *testing.T) {
	sinkConfig := configuration.SinkConfig{
		Endpoint:   "xy12345",
		Credential: configuration.Credential{Password: "hunter2"},
		Database:   "LOG_DB",
		Schema:     "RAW",
	}
	assert.NotContains(t, NewSnowflakeDialer(sinkConfig).Describe(), "hunter2")
	assert.NotContains(t, NewPostgresDialer(sinkConfig).Describe(), "hunter2")
}
