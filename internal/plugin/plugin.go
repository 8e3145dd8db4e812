// Package plugin holds the helpers shared by the type-tagged plugin
// registries (thresholds, event builders, notifiers).
package plugin

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

// ErrUnknownType is returned by registries for an unregistered type tag.
var ErrUnknownType = errors.New("unknown plugin type")

// TypeKey is the params key carrying the type tag. Decode ignores it.
const TypeKey = "type"

// Decode copies params into out, a pointer to a struct with mapstructure
// tags. Keys match case-insensitively, strings convert to numbers and
// durations, and keys that no field consumes are an error.
func Decode(params map[string]any, out any) error {
	in := make(map[string]any, len(params))
	for k, v := range params {
		if k == TypeKey {
			continue
		}
		in[k] = v
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}

// Names returns the sorted keys of a registry map, for error messages.
func Names[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Recover converts a panic in a plugin call into an error stored in *err.
// Use as: defer plugin.Recover("threshold", &err).
func Recover(kind string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s panicked: %v", kind, r)
	}
}
