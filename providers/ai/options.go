package ai

import (
	"github.com/spf13/cast"
)

// Options is the open set of per-call generation options. Each provider keeps
// only the keys it understands and coerces their values; everything else is
// dropped. The "model" key overrides the configured model.
type Options map[string]any

const OptionModel = "model"

// Model returns the "model" option, or fallback when it is absent or empty.
func (o Options) Model(fallback string) string {
	if model := cast.ToString(o[OptionModel]); model != "" {
		return model
	}
	return fallback
}

// Float returns key coerced to float64. ok is false when the key is missing or
// the value cannot be coerced.
func (o Options) Float(key string) (float64, bool) {
	raw, present := o[key]
	if !present || raw == nil {
		return 0, false
	}
	value, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

// Int returns key coerced to int.
func (o Options) Int(key string) (int, bool) {
	raw, present := o[key]
	if !present || raw == nil {
		return 0, false
	}
	value, err := cast.ToIntE(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

// String returns key coerced to string.
func (o Options) String(key string) (string, bool) {
	raw, present := o[key]
	if !present || raw == nil {
		return "", false
	}
	value, err := cast.ToStringE(raw)
	if err != nil {
		return "", false
	}
	return value, true
}

// Strings returns key as a string list. A single string becomes a one-element
// list.
func (o Options) Strings(key string) ([]string, bool) {
	raw, present := o[key]
	if !present || raw == nil {
		return nil, false
	}
	if single, ok := raw.(string); ok {
		return []string{single}, true
	}
	values, err := cast.ToStringSliceE(raw)
	if err != nil || len(values) == 0 {
		return nil, false
	}
	return values, true
}

// FloatMap returns key as a map of float64 values, as used for logit bias.
func (o Options) FloatMap(key string) (map[string]float64, bool) {
	raw, present := o[key]
	if !present || raw == nil {
		return nil, false
	}
	source, err := cast.ToStringMapE(raw)
	if err != nil {
		return nil, false
	}
	out := make(map[string]float64, len(source))
	for k, v := range source {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, false
		}
		out[k] = f
	}
	return out, true
}

// Ptr helpers keep zero values distinguishable from unset ones in request
// bodies.

func FloatPtr(o Options, key string) *float64 {
	if v, ok := o.Float(key); ok {
		return &v
	}
	return nil
}

func IntPtr(o Options, key string) *int {
	if v, ok := o.Int(key); ok {
		return &v
	}
	return nil
}

// FloatOr returns key, or fallback.
func FloatOr(o Options, key string, fallback float64) *float64 {
	if v, ok := o.Float(key); ok {
		return &v
	}
	return &fallback
}

// IntOr returns key, or fallback.
func IntOr(o Options, key string, fallback int) *int {
	if v, ok := o.Int(key); ok {
		return &v
	}
	return &fallback
}
