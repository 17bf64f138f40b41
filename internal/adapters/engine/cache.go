package engine

import (
	"crypto/sha256"
	"encoding/hex"

	json "github.com/goccy/go-json"
)

type cacheKeyInput struct {
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config"`
	Inputs map[string]interface{} `json:"inputs"`
}

// cacheKey derives the content-addressed key for a node invocation: a sha256
// over the JSON encoding of (type, resolved config, resolved inputs). Map
// keys marshal in sorted order, so equal invocations always produce equal
// keys regardless of construction order.
func cacheKey(nodeType string, config, inputs map[string]interface{}) (string, error) {
	data, err := json.Marshal(cacheKeyInput{
		Type:   nodeType,
		Config: config,
		Inputs: inputs,
	})
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// encodeCacheValue / decodeCacheValue wrap the node output for storage. The
// wrapper distinguishes a cached nil output from a missing entry.
type cacheValue struct {
	Output interface{} `json:"output"`
}

func encodeCacheValue(output interface{}) ([]byte, error) {
	return json.Marshal(cacheValue{Output: output})
}

func decodeCacheValue(data []byte) (interface{}, error) {
	var v cacheValue
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v.Output, nil
}
