package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-Research/logship/internal/common/config"
	"github.com/G-Research/logship/internal/common/logging"
)

func validConfig() Configuration {
	c := Default()
	c.Sink.Endpoint = "xy12345.eu-west-1"
	c.Sink.Principal = "LOGSHIP"
	c.Sink.Credential = Credential{Password: "hunter2"}
	return c
}

func TestValidate_Default(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_MissingConnectionDetails(t *testing.T) {
	c := Default()
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field Sink.Endpoint is required")
	assert.Contains(t, err.Error(), "field Sink.Principal is required")
	assert.Contains(t, err.Error(), "credential must have one of password or token")
}

func TestValidate_UnknownDriver(t *testing.T) {
	c := validConfig()
	c.Sink.Driver = "mysql"
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be one of [snowflake postgres]")
}

func TestCredential_Validate(t *testing.T) {
	tests := map[string]struct {
		credential Credential
		valid      bool
	}{
		"password only":          {credential: Credential{Password: "p"}, valid: true},
		"token only":             {credential: Credential{Token: "t"}, valid: true},
		"explicit token":         {credential: Credential{Kind: CredentialToken, Token: "t"}, valid: true},
		"both":                   {credential: Credential{Password: "p", Token: "t"}},
		"neither":                {credential: Credential{}},
		"kind disagrees with it": {credential: Credential{Kind: CredentialToken, Password: "p"}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tc.credential.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCredential_EffectiveKindAndSecret(t *testing.T) {
	assert.Equal(t, CredentialToken, Credential{Token: "t"}.EffectiveKind())
	assert.Equal(t, "t", Credential{Token: "t"}.Secret())
	assert.Equal(t, CredentialPassword, Credential{Password: "p"}.EffectiveKind())
	assert.Equal(t, "p", Credential{Password: "p"}.Secret())
}

func TestCredentialKind_UnmarshalText(t *testing.T) {
	var k CredentialKind
	require.NoError(t, k.UnmarshalText([]byte(" Token ")))
	assert.Equal(t, CredentialToken, k)
	assert.Error(t, k.UnmarshalText([]byte("certificate")))
}

func TestWithDefaults(t *testing.T) {
	c := Configuration{BatchSize: 5}.WithDefaults()
	assert.Equal(t, 5, c.BatchSize)
	assert.Equal(t, DefaultFlushInterval, c.FlushInterval)
	assert.Equal(t, DefaultQueueCapacity, c.QueueCapacity)
	assert.Equal(t, DefaultTableName, c.Sink.TableName)
	assert.Equal(t, DriverSnowflake, c.Sink.Driver)
	assert.Equal(t, DefaultInternalLoggerName, c.InternalLoggerName)
}

func TestValidate_TableNameMustBeIdentifier(t *testing.T) {
	for _, name := range []string{"app_logs", "APP_LOGS_2", "_x", "logs$1"} {
		c := validConfig()
		c.Sink.TableName = name
		assert.NoError(t, c.Validate(), name)
	}
	for _, name := range []string{"1logs", "logs; DROP TABLE x", "my-logs", "a.b"} {
		c := validConfig()
		c.Sink.TableName = name
		err := c.Validate()
		require.Error(t, err, name)
		assert.Contains(t, err.Error(), "field Sink.TableName has invalid value")
	}
}

func TestAppConfig_Validate(t *testing.T) {
	c := AppConfig{Logging: logging.DefaultConfig(), Forwarder: Default()}
	assert.NoError(t, c.Validate(), "a disabled forwarder needs no connection details")

	c.Enabled = true
	assert.Error(t, c.Validate())

	c.Forwarder = validConfig()
	assert.NoError(t, c.Validate())
}

func TestLoad_DefaultsFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
forwarder:
  sink:
    endpoint: xy12345.eu-west-1
    principal: LOGSHIP
    credential:
      kind: TOKEN
  batchSize: 50
  flushInterval: 2.5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("LOGSHIP_FORWARDER_SINK_CREDENTIAL_TOKEN", "secret-token")
	t.Setenv("LOGSHIP_FORWARDER_SHUTDOWNTIMEOUT", "30s")

	v := viper.New()
	SetDefaults(v)
	var c AppConfig
	require.NoError(t, config.LoadConfig(v, &c, EnvPrefix, []string{path}))

	assert.True(t, c.Enabled)
	assert.Equal(t, uint16(DefaultMetricsPort), c.MetricsPort)
	assert.Equal(t, "info", c.Logging.Console.Level)
	assert.Equal(t, "xy12345.eu-west-1", c.Forwarder.Sink.Endpoint)
	assert.Equal(t, CredentialToken, c.Forwarder.Sink.Credential.Kind)
	assert.Equal(t, "secret-token", c.Forwarder.Sink.Credential.Token)
	assert.Equal(t, 50, c.Forwarder.BatchSize)
	assert.Equal(t, 2500*time.Millisecond, c.Forwarder.FlushInterval)
	assert.Equal(t, 30*time.Second, c.Forwarder.ShutdownTimeout)
	assert.Equal(t, DefaultQueueCapacity, c.Forwarder.QueueCapacity)
	assert.Equal(t, DefaultTableName, c.Forwarder.Sink.TableName)
	assert.NoError(t, c.Validate())
}
