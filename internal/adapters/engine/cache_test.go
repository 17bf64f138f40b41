package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey_Deterministic(t *testing.T) {
	config := map[string]interface{}{"b": 2, "a": 1, "c": "three"}
	inputs := map[string]interface{}{"y": "two", "x": float64(1)}

	k1, err := cacheKey("transform", config, inputs)
	require.NoError(t, err)

	// Rebuild the maps in a different insertion order.
	config2 := map[string]interface{}{}
	for _, k := range []string{"c", "a", "b"} {
		config2[k] = config[k]
	}
	inputs2 := map[string]interface{}{"x": float64(1), "y": "two"}

	k2, err := cacheKey("transform", config2, inputs2)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64)
}

func TestCacheKey_SensitiveToEveryComponent(t *testing.T) {
	base, err := cacheKey("transform", map[string]interface{}{"a": 1}, map[string]interface{}{"x": 1})
	require.NoError(t, err)

	otherType, err := cacheKey("filter", map[string]interface{}{"a": 1}, map[string]interface{}{"x": 1})
	require.NoError(t, err)
	assert.NotEqual(t, base, otherType)

	otherConfig, err := cacheKey("transform", map[string]interface{}{"a": 2}, map[string]interface{}{"x": 1})
	require.NoError(t, err)
	assert.NotEqual(t, base, otherConfig)

	otherInputs, err := cacheKey("transform", map[string]interface{}{"a": 1}, map[string]interface{}{"x": 2})
	require.NoError(t, err)
	assert.NotEqual(t, base, otherInputs)
}

func TestCacheValue_RoundTrip(t *testing.T) {
	output := map[string]interface{}{"result": float64(9), "tags": []interface{}{"a"}}

	data, err := encodeCacheValue(output)
	require.NoError(t, err)

	decoded, err := decodeCacheValue(data)
	require.NoError(t, err)
	assert.Equal(t, output, decoded)
}

func TestCacheValue_NilOutput(t *testing.T) {
	data, err := encodeCacheValue(nil)
	require.NoError(t, err)

	decoded, err := decodeCacheValue(data)
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestCacheValue_CorruptData(t *testing.T) {
	_, err := decodeCacheValue([]byte("{not json"))
	assert.Error(t, err)
}
