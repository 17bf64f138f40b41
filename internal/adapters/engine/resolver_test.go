package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomhq/loom/internal/domain"
	"github.com/loomhq/loom/internal/ports"
)

func resolverGraph(t *testing.T, edges []domain.WorkflowEdge) *domain.WorkflowGraph {
	t.Helper()
	g := domain.NewWorkflowGraph()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, g.AddNode(domain.WorkflowNode{ID: id, Type: "test"}))
	}
	for _, edge := range edges {
		require.NoError(t, g.AddEdge(edge))
	}
	return g
}

func succeeded(output interface{}) *domain.ExecutionResult {
	return &domain.ExecutionResult{Status: domain.NodeStatusSucceeded, Output: output}
}

func TestResolveInputs_EdgeBindings(t *testing.T) {
	g := resolverGraph(t, []domain.WorkflowEdge{
		{Source: "a", Target: "c", OutputKey: "count", InputKey: "limit"},
		{Source: "b", Target: "c"},
	})

	r := &resolver{
		graph: g,
		results: map[string]*domain.ExecutionResult{
			"a": succeeded(map[string]interface{}{"count": float64(7)}),
			"b": succeeded("plain"),
		},
	}

	inputs, err := r.resolveInputs("c", ports.NodeSchema{})
	require.NoError(t, err)

	// OutputKey projects, InputKey renames; an unkeyed edge binds under the
	// source node id.
	assert.Equal(t, float64(7), inputs["limit"])
	assert.Equal(t, "plain", inputs["b"])
}

func TestResolveInputs_OutputKeyFallbackName(t *testing.T) {
	g := resolverGraph(t, []domain.WorkflowEdge{
		{Source: "a", Target: "c", OutputKey: "count"},
	})

	r := &resolver{
		graph: g,
		results: map[string]*domain.ExecutionResult{
			"a": succeeded(map[string]interface{}{"count": float64(3)}),
		},
	}

	inputs, err := r.resolveInputs("c", ports.NodeSchema{})
	require.NoError(t, err)
	assert.Equal(t, float64(3), inputs["count"])
}

func TestResolveInputs_SchemaDefaults(t *testing.T) {
	g := resolverGraph(t, nil)
	r := &resolver{graph: g, results: map[string]*domain.ExecutionResult{}}

	schema := ports.NodeSchema{Inputs: []ports.PortSpec{
		{Name: "mode", Default: "fast"},
		{Name: "nodefault"},
	}}

	inputs, err := r.resolveInputs("c", schema)
	require.NoError(t, err)
	assert.Equal(t, "fast", inputs["mode"])
	_, present := inputs["nodefault"]
	assert.False(t, present)
}

func TestResolveInputs_EdgeOverridesDefault(t *testing.T) {
	g := resolverGraph(t, []domain.WorkflowEdge{
		{Source: "a", Target: "c", InputKey: "mode"},
	})
	r := &resolver{
		graph:   g,
		results: map[string]*domain.ExecutionResult{"a": succeeded("thorough")},
	}

	schema := ports.NodeSchema{Inputs: []ports.PortSpec{{Name: "mode", Default: "fast"}}}
	inputs, err := r.resolveInputs("c", schema)
	require.NoError(t, err)
	assert.Equal(t, "thorough", inputs["mode"])
}

func TestResolveInputs_UpstreamNotSucceeded(t *testing.T) {
	g := resolverGraph(t, []domain.WorkflowEdge{{Source: "a", Target: "c"}})
	r := &resolver{
		graph: g,
		results: map[string]*domain.ExecutionResult{
			"a": {Status: domain.NodeStatusFailed},
		},
	}

	_, err := r.resolveInputs("c", ports.NodeSchema{})
	var cfgErr *domain.NodeConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "c", cfgErr.NodeID)
}

func TestResolveInputs_MissingOutputField(t *testing.T) {
	g := resolverGraph(t, []domain.WorkflowEdge{
		{Source: "a", Target: "c", OutputKey: "absent"},
	})
	r := &resolver{
		graph:   g,
		results: map[string]*domain.ExecutionResult{"a": succeeded(map[string]interface{}{"count": 1})},
	}

	_, err := r.resolveInputs("c", ports.NodeSchema{})
	assert.Error(t, err)
}

func TestInterpolateConfig_VariablesAndNodeRefs(t *testing.T) {
	g := resolverGraph(t, nil)
	r := &resolver{
		graph: g,
		results: map[string]*domain.ExecutionResult{
			"a": succeeded(map[string]interface{}{"name": "world", "count": float64(2)}),
		},
		variables: map[string]interface{}{"greeting": "hello"},
	}

	config := map[string]interface{}{
		"message": "{{variables.greeting}}, {{a.name}}!",
		"nested": map[string]interface{}{
			"items": []interface{}{"{{a.count}}"},
		},
	}

	resolved, err := r.interpolateConfig("c", config)
	require.NoError(t, err)

	assert.Equal(t, "hello, world!", resolved["message"])
	nested := resolved["nested"].(map[string]interface{})
	items := nested["items"].([]interface{})
	// Whole-string single references keep the referenced value's type.
	assert.Equal(t, float64(2), items[0])
}

func TestInterpolateConfig_WholeStringKeepsType(t *testing.T) {
	g := resolverGraph(t, nil)
	r := &resolver{
		graph: g,
		results: map[string]*domain.ExecutionResult{
			"a": succeeded(map[string]interface{}{
				"payload": map[string]interface{}{"k": "v"},
			}),
		},
	}

	resolved, err := r.interpolateConfig("c", map[string]interface{}{
		"data": "{{a.payload}}",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"k": "v"}, resolved["data"])
}

func TestInterpolateConfig_EmbeddedRefStringifies(t *testing.T) {
	g := resolverGraph(t, nil)
	r := &resolver{
		graph: g,
		results: map[string]*domain.ExecutionResult{
			"a": succeeded(map[string]interface{}{"count": float64(5)}),
		},
	}

	resolved, err := r.interpolateConfig("c", map[string]interface{}{
		"label": "total: {{a.count}}",
	})
	require.NoError(t, err)
	assert.Equal(t, "total: 5", resolved["label"])
}

func TestInterpolateConfig_UnresolvableReference(t *testing.T) {
	g := resolverGraph(t, nil)
	r := &resolver{graph: g, results: map[string]*domain.ExecutionResult{}}

	_, err := r.interpolateConfig("c", map[string]interface{}{
		"message": "{{a.name}}",
	})

	var cfgErr *domain.NodeConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "c", cfgErr.NodeID)
}

func TestInterpolateConfig_MissingVariable(t *testing.T) {
	g := resolverGraph(t, nil)
	r := &resolver{
		graph:     g,
		results:   map[string]*domain.ExecutionResult{},
		variables: map[string]interface{}{},
	}

	_, err := r.interpolateConfig("c", map[string]interface{}{
		"message": "{{variables.missing}}",
	})
	assert.Error(t, err)
}

func TestInterpolateConfig_NonStringValuesUntouched(t *testing.T) {
	g := resolverGraph(t, nil)
	r := &resolver{graph: g, results: map[string]*domain.ExecutionResult{}}

	resolved, err := r.interpolateConfig("c", map[string]interface{}{
		"retries": 3,
		"enabled": true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resolved["retries"])
	assert.Equal(t, true, resolved["enabled"])
}

func TestProject(t *testing.T) {
	value := map[string]interface{}{
		"outer": map[string]interface{}{"inner": "deep"},
	}

	got, err := project(value, []string{"outer", "inner"})
	require.NoError(t, err)
	assert.Equal(t, "deep", got)

	_, err = project(value, []string{"outer", "inner", "deeper"})
	assert.Error(t, err)

	_, err = project(value, []string{"absent"})
	assert.Error(t, err)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "plain", stringify("plain"))
	assert.Equal(t, "", stringify(nil))
	assert.Equal(t, "42", stringify(42))
	assert.Equal(t, `{"k":"v"}`, stringify(map[string]interface{}{"k": "v"}))
}
