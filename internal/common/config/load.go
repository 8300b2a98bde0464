package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LoadConfig merges, in increasing order of precedence, the defaults already set on v, each file in
// userSpecifiedConfigs and environment variables named <envPrefix>_<KEY> (dots in keys become underscores),
// then decodes the result into config.
func LoadConfig(v *viper.Viper, config interface{}, envPrefix string, userSpecifiedConfigs []string) error {
	for _, path := range userSpecifiedConfigs {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return errors.WithMessagef(err, "error reading config from %s", path)
		}
		logrus.Infof("Read config from %s", path)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.Unmarshal(config, CustomHooks...); err != nil {
		return errors.WithMessage(err, "error decoding config")
	}
	return nil
}

// MustLoadConfig is LoadConfig that exits the process on failure.
func MustLoadConfig(v *viper.Viper, config interface{}, envPrefix string, userSpecifiedConfigs []string) {
	if err := LoadConfig(v, config, envPrefix, userSpecifiedConfigs); err != nil {
		logrus.Error(err)
		os.Exit(-1)
	}
}

// BindCommandlineArguments makes every flag in flags visible to v under the flag's name.
func BindCommandlineArguments(v *viper.Viper, flags *pflag.FlagSet) {
	if err := v.BindPFlags(flags); err != nil {
		logrus.Error(err)
		os.Exit(-1)
	}
}
