package config

import (
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		SecondsToDurationHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)),
}

// SecondsToDurationHookFunc lets durations be given as a bare number of seconds, e.g. `flushInterval: 2.5`.
// Strings that parse as numbers (typically from environment variables) are treated the same way.
func SecondsToDurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		case float32:
			return time.Duration(float64(v) * float64(time.Second)), nil
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case string:
			if secs, err := strconv.ParseFloat(v, 64); err == nil {
				return time.Duration(secs * float64(time.Second)), nil
			}
			return data, nil
		default:
			return data, nil
		}
	}
}
