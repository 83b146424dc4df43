package config

import (
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// decodeHooks composes the mapstructure decode hooks the loader needs: the
// stock string-to-slice hook, a hook that accepts a comma-separated string
// wherever a []string field is expected (so a TOML file can write
// patterns = "*.flac,*.wav" instead of an array), and the stock
// TextUnmarshaler hook.
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		stringToStringSliceHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

func stringToStringSliceHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t != reflect.TypeOf([]string{}) {
			return data, nil
		}
		raw := data.(string)
		if raw == "" {
			return []string{}, nil
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
}
