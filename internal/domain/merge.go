package domain

import (
	"dario.cat/mergo"
	json "github.com/goccy/go-json"
)

// MergeValues deep-merges overlay into a copy of base, overlay winning on
// conflicts. Neither argument is mutated. The engine layers per-run variables
// over engine-wide defaults with it.
func MergeValues(base, overlay map[string]interface{}) (map[string]interface{}, error) {
	merged, err := CloneValues(base)
	if err != nil {
		return nil, err
	}

	overlayCopy, err := CloneValues(overlay)
	if err != nil {
		return nil, err
	}

	if err := mergo.Merge(&merged, overlayCopy, mergo.WithOverride); err != nil {
		return nil, err
	}
	return merged, nil
}

// CloneValues deep-copies a value map via a JSON round trip, which also
// guarantees the result only contains JSON-serializable values.
func CloneValues(values map[string]interface{}) (map[string]interface{}, error) {
	if values == nil {
		return map[string]interface{}{}, nil
	}

	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}

	out := make(map[string]interface{}, len(values))
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
